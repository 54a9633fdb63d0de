package memory

import (
	"testing"

	"example.com/studytracker/internal/storage/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		return New(WithClock(storetest.NewClock().Now))
	})
}
