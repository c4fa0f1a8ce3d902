// Package whatsapp parses incoming WhatsApp expense commands and
// validates Twilio webhook signatures.
package whatsapp

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HelpText is the reply sent for empty messages and the "ayuda" command.
const HelpText = "Formato esperado:\n" +
	"gasto <monto> | <categoria> | <descripcion> | <cuenta opcional> | <fecha opcional YYYY-MM-DD>\n" +
	"\n" +
	"Ejemplo:\n" +
	"gasto 18500 | Combustibles | Carga de gasoil | Galicia | 2026-02-18\n" +
	"\n" +
	"Si no enviás fecha, usa la de hoy.\n" +
	"Si no enviás cuenta, usa la cuenta por defecto."

// ExpenseCommand is a parsed "gasto ..." message. Account is empty when
// the sender omitted the optional account chunk.
type ExpenseCommand struct {
	Amount      decimal.Decimal
	Category    string
	Description string
	Account     string
	Date        string
}

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseExpenseCommand parses a message of the form
//
//	gasto <monto> | <categoria> | <descripcion> | [cuenta] | [fecha]
//
// Amounts use Argentinian conventions: dots are thousands separators and
// the comma is the decimal mark. The fourth chunk is a date when it looks
// like one and an account name otherwise. It returns false when the
// message is not a well-formed expense command.
func ParseExpenseCommand(body string, now time.Time) (ExpenseCommand, bool) {
	text := strings.TrimSpace(body)

	if !strings.HasPrefix(strings.ToLower(text), "gasto ") {
		return ExpenseCommand{}, false
	}

	payload := strings.TrimSpace(text[len("gasto "):])
	var chunks []string
	for _, part := range strings.Split(payload, "|") {
		if part = strings.TrimSpace(part); part != "" {
			chunks = append(chunks, part)
		}
	}
	if len(chunks) < 3 {
		return ExpenseCommand{}, false
	}

	raw := strings.ReplaceAll(chunks[0], ".", "")
	raw = strings.ReplaceAll(raw, ",", ".")
	amount, err := decimal.NewFromString(raw)
	if err != nil || amount.Sign() <= 0 {
		return ExpenseCommand{}, false
	}

	cmd := ExpenseCommand{
		Amount:      amount,
		Category:    chunks[1],
		Description: chunks[2],
		Date:        now.UTC().Format("2006-01-02"),
	}

	if len(chunks) > 3 {
		if dateRe.MatchString(chunks[3]) {
			cmd.Date = chunks[3]
		} else {
			cmd.Account = chunks[3]
		}
	}

	if len(chunks) > 4 {
		if !dateRe.MatchString(chunks[4]) {
			return ExpenseCommand{}, false
		}
		cmd.Date = chunks[4]
	}

	return cmd, true
}
