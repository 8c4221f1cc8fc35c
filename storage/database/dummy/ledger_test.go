package dummydb_test

import (
	"testing"

	"github.com/trezcool/vidyaverse/core/school"
	testutil "github.com/trezcool/vidyaverse/tests"
)

func TestLedgerRepository(t *testing.T) {
	testutil.RunStoreTests(t, func(t *testing.T) school.Store {
		store, _ := testutil.NewStore(t)
		return store
	})
}
