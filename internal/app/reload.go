package app

import (
	"reflect"
	"strings"

	"dutyroster/internal/config"
)

// restartSections cannot be applied to a running daemon.
var restartSections = map[string]bool{"roster": true, "storage": true, "clock": true}

// changedSections lists top-level config sections that differ.
func changedSections(old, cur *config.Config) []string {
	if old == nil || cur == nil {
		return nil
	}
	var out []string
	ov, nv := reflect.ValueOf(*old), reflect.ValueOf(*cur)
	t := ov.Type()
	for i := 0; i < t.NumField(); i++ {
		if reflect.DeepEqual(ov.Field(i).Interface(), nv.Field(i).Interface()) {
			continue
		}
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" {
			name = t.Field(i).Name
		}
		out = append(out, name)
	}
	return out
}

func tokenChanged(old, cur *config.Config) bool {
	return old.Telegram.Token != cur.Telegram.Token || old.Telegram.PollTimeout != cur.Telegram.PollTimeout
}
