package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rojas-cambio/cambio/internal/model"
)

func rangeFlags(cmd *cobra.Command, start, end, month *string) {
	cmd.Flags().StringVar(start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(end, "end", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(month, "month", "", "calendar month, YYYY-MM (overrides --start/--end)")
}

func parseRange(start, end, month string) (model.DateRange, error) {
	if month != "" {
		t, err := time.Parse("2006-01", month)
		if err != nil {
			return model.DateRange{}, fmt.Errorf("invalid month %q: want YYYY-MM", month)
		}
		return model.MonthRange(t.Year(), int(t.Month())), nil
	}
	rng := model.DateRange{Start: start, End: end}
	return rng, rng.Validate()
}
