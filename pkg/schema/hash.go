package schema

import (
	"crypto/md5" //nolint:gosec // surrogate key, not a security boundary
	"encoding/hex"
	"hash"
	"sort"

	jsonpool "github.com/ajitpratap0/tap-dayforce/pkg/json"
	"github.com/ajitpratap0/tap-dayforce/pkg/pool"
)

// HashKeyField is the surrogate key property of hash-keyed streams.
const HashKeyField = "hash_pk"

// digests are recycled: report streams hash every row they emit.
var digests = pool.New(md5.New, func(h hash.Hash) { h.Reset() }) //nolint:gosec

// HashKey returns a deterministic MD5 digest of row. Fields are visited in
// sorted name order and each (name, value) pair is hashed, so the key does not
// depend on column or map ordering. An existing HashKeyField is ignored.
func HashKey(row map[string]interface{}) string {
	names := make([]string, 0, len(row))
	for name := range row {
		if name == HashKeyField {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	h := digests.Get()
	defer digests.Put(h)
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0x1f})
		h.Write(canonicalValue(row[name]))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalValue encodes v as JSON. Maps are encoded with sorted keys, so
// nested values are stable too.
func canonicalValue(v interface{}) []byte {
	data, err := jsonpool.Marshal(v)
	if err != nil {
		return []byte("?")
	}
	return data
}
