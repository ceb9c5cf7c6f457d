package book

import (
	"bytes"
	"encoding/json"
	"os"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Shard thresholds for the save methods. Meta and toc shards are
// bounded by entry weight, fulltext shards by cached text length.
const (
	defaultSaveMetaThreshold     = 256 * 1024
	defaultSaveTocThreshold      = 4 * 1024 * 1024
	defaultSaveFulltextThreshold = 128 * 1024 * 1024
)

const (
	editableTreeFileHeader  = "/**\n * Feel free to edit this file, but keep data code valid JSON format.\n */\n"
	generatedTreeFileHeader = "/**\n * This file is generated by WebScrapBook and is not intended to be edited.\n */\n"
)

var (
	// ErrTreeFileMalformedWrapping indicates a tree file without a valid
	// JavaScript call around its data.
	ErrTreeFileMalformedWrapping = errors.New("tree file has malformed wrapping")

	// ErrTreeFileMalformedJSON indicates a tree file whose wrapped data
	// is not valid JSON.
	ErrTreeFileMalformedJSON = errors.New("tree file has malformed json")
)

// treeFileWrapper matches the JavaScript call wrapping a tree file's
// data, tolerating leading comments and trailing comments, whitespace
// and semicolons.
var treeFileWrapper = regexp.MustCompile(`^(?:/\*.*\*/|[^(])+\(([\s\S]*)\)(?:/\*.*\*/|[\s;])*$`)

// LoadTreeFile reads a tree file and returns the data inside its
// JavaScript call wrapping.
func (b *Book) LoadTreeFile(file string) (map[string]interface{}, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tree file %q", file)
	}

	m := treeFileWrapper.FindSubmatch(content)
	if m == nil {
		return nil, errors.Wrapf(ErrTreeFileMalformedWrapping, "tree file %q", file)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(m[1], &data); err != nil {
		return nil, errors.Wrapf(ErrTreeFileMalformedJSON, "tree file %q", file)
	}
	return data, nil
}

// LoadTreeFiles loads and merges all shards of a tree file. An entry
// redefined by a later shard overwrites the earlier definition; an
// entry set to null is dropped.
func (b *Book) LoadTreeFiles(name string) (map[string]interface{}, error) {
	data := make(map[string]interface{})
	for _, file := range b.IterTreeFiles(name) {
		d, err := b.LoadTreeFile(file)
		if err != nil {
			return nil, err
		}
		for id, value := range d {
			data[id] = value
		}
	}

	// A null value marks an entry deleted by a later shard.
	for id, value := range data {
		if value == nil {
			delete(data, id)
		}
	}
	return data, nil
}

// LoadMetaFiles populates Meta from the meta tree files. A loaded Meta
// is reused unless refresh is set.
func (b *Book) LoadMetaFiles(refresh bool) error {
	if b.Meta != nil && !refresh {
		return nil
	}
	data, err := b.LoadTreeFiles("meta")
	if err != nil {
		return err
	}
	b.Meta = data
	return nil
}

// LoadTocFiles populates Toc from the toc tree files. A loaded Toc is
// reused unless refresh is set.
func (b *Book) LoadTocFiles(refresh bool) error {
	if b.Toc != nil && !refresh {
		return nil
	}
	data, err := b.LoadTreeFiles("toc")
	if err != nil {
		return err
	}
	b.Toc = data
	return nil
}

// LoadFulltextFiles populates Fulltext from the fulltext tree files. A
// loaded Fulltext is reused unless refresh is set.
func (b *Book) LoadFulltextFiles(refresh bool) error {
	if b.Fulltext != nil && !refresh {
		return nil
	}
	data, err := b.LoadTreeFiles("fulltext")
	if err != nil {
		return err
	}
	b.Fulltext = data
	return nil
}

// SaveMetaFiles writes Meta back to the meta tree files.
func (b *Book) SaveMetaFiles() error {
	return b.saveTreeFiles("meta", b.Meta, b.saveMetaThreshold, entryWeight, editableTreeFileHeader, "  ")
}

// SaveTocFiles writes Toc back to the toc tree files.
func (b *Book) SaveTocFiles() error {
	return b.saveTreeFiles("toc", b.Toc, b.saveTocThreshold, entryWeight, editableTreeFileHeader, "  ")
}

// SaveFulltextFiles writes Fulltext back to the fulltext tree files.
// Fulltext shards are written compactly, as they grow far larger than
// the other tree files.
func (b *Book) SaveFulltextFiles() error {
	return b.saveTreeFiles("fulltext", b.Fulltext, b.saveFulltextThreshold, fulltextWeight, generatedTreeFileHeader, " ")
}

// saveTreeFiles writes data as a run of shards in id order, starting a
// new shard once the accumulated weight reaches threshold, then removes
// the consecutive leftover shards of any previous, larger save.
func (b *Book) saveTreeFiles(name string, data map[string]interface{}, threshold int, weigh func(interface{}) int, header, indent string) error {
	if err := os.MkdirAll(b.TreeDir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create tree directory %q", b.TreeDir)
	}

	ids := make([]string, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	shard := make(map[string]interface{})
	total := 0
	index := 0
	for _, id := range ids {
		value := data[id]
		if value == nil {
			continue
		}
		shard[id] = value
		total += weigh(value)
		if total >= threshold {
			if err := b.saveTreeFile(name, index, shard, header, indent); err != nil {
				return err
			}
			index++
			total = 0
			shard = make(map[string]interface{})
		}
	}
	if len(shard) > 0 || index == 0 {
		if err := b.saveTreeFile(name, index, shard, header, indent); err != nil {
			return err
		}
		index++
	}

	for {
		file := b.TreeFile(name, index)
		if err := os.Remove(file); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return errors.Wrapf(err, "failed to remove tree file %q", file)
		}
		index++
	}
}

func (b *Book) saveTreeFile(name string, index int, data map[string]interface{}, header, indent string) error {
	var buf bytes.Buffer
	buf.WriteString(header)
	buf.WriteString("scrapbook." + name + "(")

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(data); err != nil {
		return errors.Wrapf(err, "failed to encode %s tree data", name)
	}

	// Encode terminates the document with a newline.
	buf.Truncate(buf.Len() - 1)
	buf.WriteString(")")

	file := b.TreeFile(name, index)
	if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write tree file %q", file)
	}
	return nil
}

// entryWeight gauges a meta or toc entry as one plus its member count.
func entryWeight(value interface{}) int {
	switch v := value.(type) {
	case map[string]interface{}:
		return 1 + len(v)
	case []interface{}:
		return 1 + len(v)
	case []string:
		return 1 + len(v)
	default:
		return 1
	}
}

// fulltextWeight gauges a fulltext entry by the length of the cached
// text of its pages.
func fulltextWeight(value interface{}) int {
	pages, ok := value.(map[string]interface{})
	if !ok {
		return 0
	}

	total := 0
	for _, page := range pages {
		if p, ok := page.(map[string]interface{}); ok {
			if content, ok := p["content"].(string); ok {
				total += utf8.RuneCountInString(content)
			}
		}
	}
	return total
}
