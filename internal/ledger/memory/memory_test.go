package memory

import (
	"testing"

	"bilancio/internal/ledger"
	"bilancio/internal/ledger/ledgertest"

	"github.com/stretchr/testify/suite"
)

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &ledgertest.StoreSuite{New: func() ledger.Store { return New() }})
}
