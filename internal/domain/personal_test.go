package domain

import (
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm/schema"
)

func TestDefaultPersonalNameFitsColumn(t *testing.T) {
	fieldSize := func(model any, name string) int {
		t.Helper()
		s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
		if err != nil {
			t.Fatalf("parse schema: %v", err)
		}
		f := s.LookUpField(name)
		if f == nil {
			t.Fatalf("no field %s", name)
		}
		return f.Size
	}

	userMax := fieldSize(&User{}, "Username")
	longest := DefaultPersonalName(strings.Repeat("a", userMax))
	if got := fieldSize(&Personal{}, "Name"); len(longest) > got {
		t.Fatalf("personal name column holds %d chars, default name needs %d", got, len(longest))
	}
}
