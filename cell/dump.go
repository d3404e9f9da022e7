package cell

import (
	"encoding/hex"
	"fmt"

	"github.com/xlab/treeprint"
)

// Dump renders the cell tree in a human-readable form for debugging and the
// CLI inspector. Shared subtrees are printed once per occurrence.
func (c *Cell) Dump() string {
	tree := treeprint.New()
	dumpInto(tree, c)
	return tree.String()
}

func dumpInto(branch treeprint.Tree, c *Cell) {
	label := fmt.Sprintf("%s %db %s", c.typ, c.bits, c.Hash().String()[:16])
	if c.bits > 0 {
		label += " x{" + hex.EncodeToString(c.data) + "}"
	}

	if len(c.refs) == 0 {
		branch.AddNode(label)
		return
	}
	sub := branch.AddBranch(label)
	for _, ref := range c.refs {
		dumpInto(sub, ref)
	}
}
