package hash

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	mt "github.com/txaty/go-merkletree"

	"dirsize/internal/tree"
)

// NodeHash computes the xxHash of a node's path, kind and size.
func NodeHash(t *tree.Tree, id tree.NodeID) string {
	h := xxhash.New()
	h.Write(nodeBytes(t, id))
	return hex.EncodeToString(h.Sum(nil))
}

func nodeBytes(t *tree.Tree, id tree.NodeID) []byte {
	var buf []byte
	buf = append(buf, t.Kind(id).String()...)
	buf = append(buf, 0)
	buf = append(buf, t.Path(id)...)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, t.Size(id), 10)
	return buf
}

// XXHashFunc is a custom hash function adapter for go-merkletree
// It converts []byte input to xxHash []byte output
func XXHashFunc(data []byte) ([]byte, error) {
	h := xxhash.New()
	h.Write(data)
	sum := h.Sum64()

	// Convert uint64 to []byte in big-endian format
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, sum)
	return buf, nil
}

// walkBlock is one walk entry fed to the merkle tree.
type walkBlock struct {
	data []byte
}

func (b walkBlock) Serialize() ([]byte, error) {
	return b.data, nil
}

// Digest is the merkle root over the walk of root. Two trees share a digest
// exactly when they walk the same paths with the same kinds and sizes.
func Digest(t *tree.Tree, root tree.NodeID) (string, error) {
	ids := tree.Walk(t, root)

	// go-merkletree needs at least two blocks
	if len(ids) < 2 {
		sum, err := XXHashFunc(nodeBytes(t, root))
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(sum), nil
	}

	blocks := make([]mt.DataBlock, 0, len(ids))
	for _, id := range ids {
		blocks = append(blocks, walkBlock{data: nodeBytes(t, id)})
	}

	m, err := mt.New(&mt.Config{
		HashFunc: XXHashFunc,
		Mode:     mt.ModeTreeBuild,
	}, blocks)
	if err != nil {
		return "", fmt.Errorf("failed to build merkle tree: %w", err)
	}
	return hex.EncodeToString(m.Root), nil
}
