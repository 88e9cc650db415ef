package engine

import (
	"Leadline/internal/pkg/consts"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      string
		wantClass TagClass
	}{
		{"canonical phase", "call_booked", PhaseCallBooked, ClassPhase},
		{"synonym booked call", "booked call", PhaseCallBooked, ClassPhase},
		{"synonym with case and spaces", "  Booked  Call ", PhaseCallBooked, ClassPhase},
		{"hyphenated", "no-show", PhaseNoShow, ClassPhase},
		{"underscore variant", "new_lead", PhaseNewLead, ClassPhase},
		{"temperature", "HOT", TempHot, ClassTemperature},
		{"disqualified synonym", "Disqualified", PhaseUnqualified, ClassPhase},
		{"plain custom tag", "vip клиент", "vip клиент", ClassNone},
		{"empty", "", "", ClassNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, class := Canonicalize(tt.in)
			if got != tt.want || class != tt.wantClass {
				t.Fatalf("Canonicalize(%q) = (%q, %q), want (%q, %q)", tt.in, got, class, tt.want, tt.wantClass)
			}
		})
	}
}

func TestPresetFor(t *testing.T) {
	for _, name := range []string{TempHot, TempWarm, TempCold, PhaseNewLead, PhaseInContact,
		PhaseQualified, PhaseUnqualified, PhaseCallBooked, PhaseWon, PhaseNoShow} {
		preset, ok := PresetFor(name)
		if !ok {
			t.Fatalf("no preset for %q", name)
		}
		if preset.Color == "" || preset.Icon == "" {
			t.Fatalf("incomplete preset for %q: %+v", name, preset)
		}
	}
	if _, ok := PresetFor("custom"); ok {
		t.Fatal("preset returned for non-canonical tag")
	}
}

func TestPhaseToLeadStatus(t *testing.T) {
	tests := []struct {
		phase string
		want  string
	}{
		{PhaseQualified, consts.LeadStatusQualified},
		{PhaseWon, consts.LeadStatusQualified},
		{PhaseUnqualified, consts.LeadStatusDisqualified},
		{PhaseNewLead, consts.LeadStatusOpen},
		{PhaseCallBooked, consts.LeadStatusOpen},
		{"", consts.LeadStatusOpen},
	}
	for _, tt := range tests {
		if got := PhaseToLeadStatus(tt.phase); got != tt.want {
			t.Fatalf("PhaseToLeadStatus(%q) = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
