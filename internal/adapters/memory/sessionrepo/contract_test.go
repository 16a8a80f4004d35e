package sessionrepo_test

import (
	"testing"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/contracttest"
	memgrouprepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/grouprepo"
	memsessionrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/sessionrepo"
	memuserrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/userrepo"
)

func newMemoryStores(t *testing.T) (contracttest.Stores, contracttest.CleanupFunc) {
	t.Helper()
	users := memuserrepo.NewRepo()
	return contracttest.Stores{
		Users:    users,
		Groups:   memgrouprepo.NewRepo(users),
		Sessions: memsessionrepo.NewRepo(),
	}, nil
}

func TestContract_SessionRepo(t *testing.T) {
	contracttest.RunSessionRepo(t, newMemoryStores)
}
