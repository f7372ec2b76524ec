package maple

import (
	"testing"

	"github.com/ValentinKolb/dCouch/lib/db"
	dbtesting "github.com/ValentinKolb/dCouch/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunDocDBTests(t, "MapleDB", func() db.DocDB {
		return NewMapleDB(nil)
	})
}

func TestSingleShard(t *testing.T) {
	dbtesting.RunDocDBTests(t, "MapleDB(1)", func() db.DocDB {
		return NewMapleDB(&DBOptions{NumShards: 1})
	})
}

func Benchmark(t *testing.B) {
	dbtesting.RunDocDBBenchmarks(t, "MapleDB", func() db.DocDB {
		return NewMapleDB(nil)
	})
}
