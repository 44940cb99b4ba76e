package phase

import (
	"encoding/json"
	"fmt"
)

// List is a declared, ordered phase sequence.
type List []Entry

// Index returns the position of the entry whose canonical form equals s, or -1.
func (l List) Index(s string) int {
	for i, e := range l {
		if e.String() == s {
			return i
		}
	}
	return -1
}

// Labels returns the canonical strings in order.
func (l List) Labels() []string {
	out := make([]string, len(l))
	for i, e := range l {
		out[i] = e.String()
	}
	return out
}

// InsertSubPhase returns a copy of l with e placed right after the last entry
// sharing e's major number, or appended when none does.
func (l List) InsertSubPhase(e Entry) List {
	target, err := ParseLabel(e.Label)
	at := len(l)
	if err == nil {
		for i := len(l) - 1; i >= 0; i-- {
			lbl, perr := ParseLabel(l[i].Label)
			if perr == nil && lbl.Major == target.Major {
				at = i + 1
				break
			}
		}
	}

	out := make(List, 0, len(l)+1)
	out = append(out, l[:at]...)
	out = append(out, e)
	out = append(out, l[at:]...)
	return out
}

// Validate checks every label parses and no canonical form repeats.
func (l List) Validate() error {
	seen := make(map[string]bool, len(l))
	for i, e := range l {
		if _, err := ParseLabel(e.Label); err != nil {
			return fmt.Errorf("phases[%d]: %w", i, err)
		}
		s := e.String()
		if seen[s] {
			return fmt.Errorf("phases[%d]: duplicate phase %q", i, s)
		}
		seen[s] = true
	}
	return nil
}

// DecodeList parses a JSON phase list. Entries may be objects
// ({"label","name"}) or canonical strings ("1: Work").
func DecodeList(raw []byte) (List, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode phase list: %w", err)
	}
	out := make(List, 0, len(items))
	for i, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, ParsePhase(s))
			continue
		}
		var e Entry
		if err := json.Unmarshal(item, &e); err != nil {
			return nil, fmt.Errorf("decode phase list entry %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Encode returns the JSON object form of l.
func (l List) Encode() ([]byte, error) {
	if l == nil {
		l = List{}
	}
	return json.Marshal([]Entry(l))
}

// UnmarshalJSON accepts the same entry forms as DecodeList.
func (l *List) UnmarshalJSON(raw []byte) error {
	list, err := DecodeList(raw)
	if err != nil {
		return err
	}
	*l = list
	return nil
}
