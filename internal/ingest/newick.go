// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/hdc-arizona/traveler-integrated/internal/datastore"
	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
)

// Tools for handling the tree
var (
	treeModeParser = regexp.MustCompile(`Tree information for function:`)
	// assume a line beginning with at least 5 parens is the tree
	unflaggedTreeParser = regexp.MustCompile(`^\(\(\(\(\(.*;`)
)

type newickNode struct {
	name     string
	children []*newickNode
}

// parseNewick reads one `(children)name;` tree. Branch lengths after ':'
// are dropped; nodes may be unnamed.
func parseNewick(text string) (*newickNode, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty newick input")
	}
	p := &newickParser{input: text}
	node, err := p.parseSubtree()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == ';' {
		p.pos++
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("trailing newick input at offset %d", p.pos)
	}
	return node, nil
}

type newickParser struct {
	input string
	pos   int
}

func (p *newickParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n' || p.input[p.pos] == '\r') {
		p.pos++
	}
}

func (p *newickParser) parseSubtree() (*newickNode, error) {
	p.skipSpace()
	node := &newickNode{}
	if p.pos < len(p.input) && p.input[p.pos] == '(' {
		p.pos++
		for {
			child, err := p.parseSubtree()
			if err != nil {
				return nil, err
			}
			node.children = append(node.children, child)
			p.skipSpace()
			if p.pos >= len(p.input) {
				return nil, fmt.Errorf("unterminated newick group")
			}
			if p.input[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.input[p.pos] == ')' {
				p.pos++
				break
			}
			return nil, fmt.Errorf("unexpected %q in newick group", p.input[p.pos])
		}
	}
	node.name = p.parseLabel()
	return node, nil
}

func (p *newickParser) parseLabel() string {
	start := p.pos
	for p.pos < len(p.input) && !strings.ContainsRune("(),;", rune(p.input[p.pos])) {
		p.pos++
	}
	label := strings.TrimSpace(p.input[start:p.pos])
	if i := strings.IndexByte(label, ':'); i >= 0 {
		label = label[:i]
	}
	return label
}

// processNewickNode registers the node's primitive and its child links,
// splicing unnamed nodes out by connecting to their children instead.
func processNewickNode(ds *datastore.Dataset, node *newickNode, counts *dotCounts) *schema.TreeNode {
	primitiveName := strings.TrimSpace(node.name)
	if _, wasNew := ds.ProcessPrimitive(primitiveName, "newick"); wasNew {
		counts.newR++
	} else {
		counts.seenR++
	}
	tree := &schema.TreeNode{Name: primitiveName, Children: []*schema.TreeNode{}}

	var handleChildren func(children []*newickNode)
	handleChildren = func(children []*newickNode) {
		for _, child := range children {
			if child.name == "" {
				// Skip nodes with no names, and connect to their children instead
				handleChildren(child.children)
				continue
			}
			childTree := processNewickNode(ds, child, counts)
			tree.Children = append(tree.Children, childTree)
			if _, wasNew := ds.AddPrimitiveChild(primitiveName, childTree.Name, "newick"); wasNew {
				counts.newL++
			} else {
				counts.seenL++
			}
		}
	}
	handleChildren(node.children)
	return tree
}

// ProcessNewickTree ingests one newick call tree and stores its shape under
// the dataset's "newick" tree.
func ProcessNewickTree(ds *datastore.Dataset, newickText string, logger Logger) error {
	root, err := parseNewick(newickText)
	if err != nil {
		return err
	}
	var counts dotCounts
	tree := processNewickNode(ds, root, &counts)
	ds.Trees["newick"] = tree
	logger.Log("Finished parsing newick tree")
	logger.Log(fmt.Sprintf("New primitives: %d, Observed existing primitives: %d", counts.newR, counts.seenR))
	logger.Log(fmt.Sprintf("New links: %d, Observed existing links: %d", counts.newL, counts.seenL))
	return nil
}

// ProcessNewickSource wraps ProcessNewickTree with source-file bookkeeping.
func ProcessNewickSource(store *datastore.Store, datasetID, fileName string, r io.Reader, logger Logger) error {
	ds, err := store.Get(datasetID)
	if err != nil {
		return err
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := store.AddSourceFile(datasetID, fileName, "newick"); err != nil {
		return err
	}
	if err := ProcessNewickTree(ds, string(text), logger); err != nil {
		store.Purge(datasetID)
		return err
	}
	if err := store.FinishLoadingSourceFile(datasetID, fileName); err != nil {
		return err
	}
	return store.Save(datasetID)
}
