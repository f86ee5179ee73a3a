package event

import (
	"hash/fnv"

	"github.com/erdlab/collab/types"
)

// memberPalette is the fixed set of cursor/presence colors assigned to
// members. Stable across instances so every viewer sees the same color for
// the same person.
var memberPalette = []string{
	"#ff6b6b", "#4ecdc4", "#45b7d1", "#f7b731", "#5f27cd",
	"#00d2d3", "#1dd1a1", "#feca57", "#ee5a6f", "#c44569",
}

// MemberColor returns the deterministic presence color for an identity.
func MemberColor(id types.Identity) string {
	h := fnv.New32a()
	h.Write([]byte(id))
	return memberPalette[h.Sum32()%uint32(len(memberPalette))]
}
