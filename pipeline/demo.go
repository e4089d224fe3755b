package pipeline

import (
	"time"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/aouyang1/go-demand/event"
	"github.com/aouyang1/go-demand/timedataset"
)

// GenerateDemo simulates a daily demand frame with a temperature covariate. Sundays and
// national holidays are flagged as holidays.
func GenerateDemo(start time.Time, days int, seed uint64) *dataset.Frame {
	td := timedataset.GenerateDailyDemand(start, days, seed)
	holiday := make([]bool, td.Len())
	if td.Len() == 0 {
		return dataset.FromDataset(td, holiday)
	}

	events := event.Holidays(event.NationalHolidays, td.T[0], td.T[td.Len()-1], 0, 0)
	for _, col := range event.Indicators(td.T, events) {
		for i, v := range col {
			if v == 1 {
				holiday[i] = true
			}
		}
	}
	for i, t := range td.T {
		if t.Weekday() == time.Sunday {
			holiday[i] = true
		}
	}
	return dataset.FromDataset(td, holiday)
}
