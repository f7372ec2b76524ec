package codec

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/dCouch/lib/store"
)

func benchmarkDocument() store.Document {
	ids := make([]interface{}, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("group_%d", i)
	}
	return store.Document{
		"_id":        "user_1",
		"_rev":       "4f9c1e0b6a2d4b5c8e7f0a1b2c3d4e5f",
		"ruby_class": "User",
		"firstname":  "Bert",
		"age":        float64(42),
		"group_ids":  ids,
	}
}

func BenchmarkCodecs(b *testing.B) {
	doc := benchmarkDocument()
	for name, factory := range testCodecs {
		c := factory()
		data, _ := c.Encode(doc)

		b.Run(name+"/Encode", func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := c.Encode(doc); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run(name+"/Decode", func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := c.Decode(data); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(len(data)), "bytes/doc")
		})
	}
}
