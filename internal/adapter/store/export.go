package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"oxylog/internal/domain"
)

// ExportJSON writes measurements as an indented JSON array.
func ExportJSON(w io.Writer, measurements []domain.Measurement) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if measurements == nil {
		measurements = []domain.Measurement{}
	}
	return enc.Encode(measurements)
}

// csvHeader is the column order of ExportCSV.
var csvHeader = []string{
	"device_address", "seq", "started_at", "finished_at",
	"spo2_max", "spo2_min", "spo2_avg",
	"pulse_max", "pulse_min", "pulse_avg",
}

// ExportCSV writes measurements as CSV with a header row. Pulse columns
// are empty when the recording has no pulse-rate data.
func ExportCSV(w io.Writer, measurements []domain.Measurement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, m := range measurements {
		rec := []string{
			m.DeviceAddress,
			strconv.Itoa(int(m.Seq)),
			m.StartedAt.Format(timeLayout),
			m.FinishedAt.Format(timeLayout),
			strconv.Itoa(int(m.SpO2.Max)),
			strconv.Itoa(int(m.SpO2.Min)),
			strconv.Itoa(int(m.SpO2.Avg)),
			"", "", "",
		}
		if m.PulseRate != nil {
			rec[7] = strconv.Itoa(int(m.PulseRate.Max))
			rec[8] = strconv.Itoa(int(m.PulseRate.Min))
			rec[9] = strconv.Itoa(int(m.PulseRate.Avg))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
