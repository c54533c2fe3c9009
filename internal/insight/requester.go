// Package insight asks a text-generation provider for a financial summary of
// the transaction collection.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"clinica/internal/core"
)

const (
	// Placeholder is shown instead of an analysis whenever the provider
	// fails, including when no API key is configured.
	Placeholder = "Errore nella comunicazione con l'assistente AI. Assicurati che l'API KEY sia configurata."

	// EmptyAnswer is shown when the provider answers with no text.
	EmptyAnswer = "Non è stato possibile generare un'analisi al momento."

	SystemInstruction = "Sei un consulente finanziario esperto in gestione di studi medici."
)

var (
	ErrNotConfigured    = errors.New("insight provider not configured")
	ErrNothingToAnalyze = errors.New("no transactions to analyze")
)

// Requester turns a transaction collection into free-form text. An empty
// string with a nil error means the provider had nothing to say.
type Requester interface {
	Analyze(ctx context.Context, list []core.Transaction) (string, error)
}

// Unconfigured is used when no API key is available. It always fails so the
// caller falls back to Placeholder.
type Unconfigured struct{}

func (Unconfigured) Analyze(context.Context, []core.Transaction) (string, error) {
	return "", ErrNotConfigured
}

// BuildPrompt embeds the collection as indented JSON in the fixed Italian
// request.
func BuildPrompt(list []core.Transaction) (string, error) {
	if list == nil {
		list = []core.Transaction{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transactions: %w", err)
	}

	var b strings.Builder
	b.WriteString("Analizza le seguenti transazioni finanziarie di uno studio medico:\n")
	b.Write(data)
	b.WriteString("\n\n")
	b.WriteString("Per favore, fornisci un'analisi dettagliata in formato Markdown che includa:\n")
	b.WriteString("1. Una sintesi dello stato di salute finanziario.\n")
	b.WriteString("2. Tre suggerimenti specifici per ridurre le spese o aumentare l'efficienza basandoti sulle categorie di spesa.\n")
	b.WriteString("3. Un commento sul bilancio tra entrate e uscite.\n\n")
	b.WriteString("Rispondi esclusivamente in lingua italiana con un tono professionale e rassicurante.")
	return b.String(), nil
}
