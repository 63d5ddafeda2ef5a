package driver

import (
	"encoding/json"
	"fmt"

	"ownc/internal/diag"
	"ownc/internal/observ"
	"ownc/internal/source"
)

type timingPayload struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// appendTimingDiagnostic records the phase report as an info diagnostic
// whose single note carries the JSON payload. It is added even when the
// bag is already full.
func appendTimingDiagnostic(bag *diag.Bag, path string, report observ.Report) {
	if bag == nil || len(report.Phases) == 0 {
		return
	}
	payload := timingPayload{Kind: "unit", Path: path, TotalMS: report.TotalMS, Phases: report.Phases}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	entry := diag.Diagnostic{
		Severity: diag.SevInfo,
		Code:     diag.IOInfo,
		Message:  fmt.Sprintf("timings (%s): total %.2f ms, %s", payload.Kind, payload.TotalMS, path),
		Notes:    []diag.Note{{Span: source.Span{}, Msg: string(data)}},
	}
	if bag.Add(entry) {
		return
	}
	overflow := diag.NewBag(1)
	overflow.Add(entry)
	bag.Merge(overflow)
}
