package sessionrepo_test

import (
	"testing"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/contracttest"
	pggrouprepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/postgres/grouprepo"
	pgsessionrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/postgres/sessionrepo"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/postgres/testutil"
	pguserrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/postgres/userrepo"
)

func TestContract_PostgresSessionRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)
	contracttest.RunSessionRepo(t, func(t *testing.T) (contracttest.Stores, contracttest.CleanupFunc) {
		t.Helper()
		return contracttest.Stores{
			Users:    pguserrepo.NewRepo(pool),
			Groups:   pggrouprepo.NewRepo(pool),
			Sessions: pgsessionrepo.NewRepo(pool),
		}, nil
	})
}
