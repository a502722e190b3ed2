package domain

import (
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"

	catalog "github.com/felixgeelhaar/sigil/internal/catalog/domain"
)

// digestSeedAlt is the seed of the second hash round. 524287 is the seventh
// Mersenne prime.
const (
	digestSeed    uint32 = 0
	digestSeedAlt uint32 = 524287
)

// ContentDigest computes a stable token over the content-affecting state of a
// certificate: the product id, its attributes, and the eligible content in
// filter order. Equal state yields equal digests regardless of map iteration
// order. The digest detects change; it is not a security primitive.
func ContentDigest(product *catalog.Product, eligible []catalog.ProductContent) string {
	var b strings.Builder

	b.WriteString(product.ID())
	b.WriteByte(0)

	attrs := product.Attributes()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(0)
		b.WriteString(attrs[k])
		b.WriteByte(0)
	}

	for _, pc := range eligible {
		content := pc.Content()
		b.WriteString(content.ID())
		b.WriteByte(0)
		b.WriteString(string(content.RepoType()))
		b.WriteByte(0)
		b.WriteString(content.Label())
		b.WriteByte(0)
		b.WriteString(content.Name())
		b.WriteByte(0)
		b.WriteString(strconv.FormatBool(pc.Enabled()))
		b.WriteByte(0)
	}

	data := []byte(b.String())
	out := make([]byte, 0, 32)
	for _, seed := range []uint32{digestSeed, digestSeedAlt} {
		h1, h2 := murmur3.Sum128WithSeed(data, seed)
		var block [16]byte
		binary.BigEndian.PutUint64(block[:8], h1)
		binary.BigEndian.PutUint64(block[8:], h2)
		out = append(out, block[:]...)
	}
	return hex.EncodeToString(out)
}
