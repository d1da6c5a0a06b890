package classifier

import "testing"

func TestRepairPayload(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantState payloadState
	}{
		{
			name:      "valid payload passes through",
			in:        `{"classifications": [{"commentIndex": 1, "themeName": "A", "confidence": 0.9}]}`,
			wantState: payloadOK,
		},
		{
			name:      "truncated mid-entry is repaired",
			in:        `{"classifications": [{"commentIndex": 1, "themeName": "A", "confidence": 0.9}, {"commentIndex": 2, "themeNa`,
			wantState: payloadRepaired,
		},
		{
			name:      "truncated right after an entry is repaired",
			in:        `{"classifications": [{"commentIndex": 1, "themeName": "A", "confidence": 0.9}`,
			wantState: payloadRepaired,
		},
		{
			name:      "prose is malformed",
			in:        `I am unable to classify these comments.`,
			wantState: payloadMalformed,
		},
		{
			name:      "empty is malformed",
			in:        ``,
			wantState: payloadMalformed,
		},
		{
			name:      "complete but invalid is malformed",
			in:        `{"classifications": [{]}`,
			wantState: payloadMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, state := repairPayload(tt.in)
			if state != tt.wantState {
				t.Errorf("state = %d, want %d", state, tt.wantState)
			}
		})
	}
}

func TestSanitizePayloadStripsFences(t *testing.T) {
	in := "```json\n{\"themes\": []}\n```"
	if got := sanitizePayload(in); got != `{"themes": []}` {
		t.Errorf("sanitizePayload = %q", got)
	}
}

func TestExtractArray(t *testing.T) {
	raw := "```json\n{\"classifications\": [{\"commentIndex\": 1, \"themeName\": \"A\", \"confidence\": 0.5}]}\n```"
	arr, state := extractArray(raw, "classifications")
	if state != payloadOK {
		t.Fatalf("state = %d, want payloadOK", state)
	}
	if arr == "" || arr[0] != '[' {
		t.Errorf("expected array JSON, got %q", arr)
	}
}

func TestExtractArrayWrongField(t *testing.T) {
	_, state := extractArray(`{"themes": []}`, "classifications")
	if state != payloadMalformed {
		t.Errorf("state = %d, want payloadMalformed", state)
	}
}
