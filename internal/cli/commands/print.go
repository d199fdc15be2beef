package commands

import (
	"CardVault/internal/model"
	"fmt"
	"io"
	"text/tabwriter"
)

// колонки, которые CLI показывает в таблице; остальные есть в JSON ответа
var rowColumns = []string{model.FieldFilename, model.FieldName, model.FieldFoil, model.FieldPurchasePrice, model.FieldScryfallID}

// printRows печатает строки инвентаря таблицей.
func printRows(w io.Writer, rows []model.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No cards found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, c := range rowColumns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	for _, r := range rows {
		for i, c := range rowColumns {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, r[c])
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// splitFileFlag отделяет -f/--file <name> от остальных аргументов в любой позиции.
func splitFileFlag(args []string) (rest []string, file string, err error) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f", "--file", "-file":
			if i+1 >= len(args) {
				return nil, "", ErrUsage
			}
			file = args[i+1]
			i++
		default:
			rest = append(rest, args[i])
		}
	}
	return rest, file, nil
}
