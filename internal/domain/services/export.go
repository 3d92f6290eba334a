package services

import (
	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

// ExportSnapshot converts a snapshot into the nested export document.
// With FilterTrustedItems, trusted dylibs are omitted and trusted tasks are
// omitted unless one of their descendants is kept.
// Pure business logic - no I/O
func ExportSnapshot(result *entities.ScanResult) *entities.ExportDocument {
	snapshot := result.Snapshot
	doc := &entities.ExportDocument{
		State:       result.State,
		Partial:     result.Partial,
		Tasks:       []*entities.TaskDocument{},
		Diagnostics: []entities.Diagnostic{},
	}
	if snapshot == nil {
		return doc
	}

	doc.StartedAt = snapshot.StartedAt
	doc.DurationMS = snapshot.Duration.Milliseconds()
	doc.Diagnostics = append(doc.Diagnostics, snapshot.Diagnostics...)

	e := &exporter{
		snapshot: snapshot,
		index:    snapshot.Index(),
		filter:   result.Options.FilterTrustedItems,
		visited:  make(map[int]bool, len(snapshot.Tasks)),
	}
	for _, root := range snapshot.Roots {
		if td := e.task(root); td != nil {
			doc.Tasks = append(doc.Tasks, td)
		}
	}
	return doc
}

// ExportSubtree exports only the tree rooted at pid; nil if pid is absent
func ExportSubtree(result *entities.ScanResult, pid int) *entities.TaskDocument {
	if result.Snapshot == nil {
		return nil
	}
	e := &exporter{
		snapshot: result.Snapshot,
		index:    result.Snapshot.Index(),
		filter:   result.Options.FilterTrustedItems,
		visited:  make(map[int]bool),
	}
	return e.task(pid)
}

type exporter struct {
	snapshot *entities.Snapshot
	index    map[int]*entities.Task
	filter   bool
	visited  map[int]bool
}

func (e *exporter) task(pid int) *entities.TaskDocument {
	t, ok := e.index[pid]
	if !ok || e.visited[pid] {
		return nil
	}
	e.visited[pid] = true

	children := make([]*entities.TaskDocument, 0, len(t.Children))
	for _, child := range t.Children {
		if cd := e.task(child); cd != nil {
			children = append(children, cd)
		}
	}

	if e.filter && t.Binary != nil && t.Binary.IsTrusted && len(children) == 0 {
		return nil
	}

	td := &entities.TaskDocument{
		PID:            t.PID,
		PPID:           t.PPID,
		Name:           t.Name(),
		Orphaned:       t.Orphaned,
		Binary:         binaryDocument(t.Binary),
		Arguments:      append([]string{}, t.Arguments...),
		CommandTrusted: t.CommandTrusted,
		Dylibs:         make([]*entities.BinaryDocument, 0, len(t.Dylibs)),
		Files:          make([]entities.ItemDocument, 0, len(t.Files)),
		Connections:    make([]entities.ItemDocument, 0, len(t.Connections)),
		Children:       children,
		Diagnostics:    t.Diagnostics,
	}

	for _, key := range t.Dylibs {
		b, ok := e.snapshot.Dylibs[key]
		if !ok || (e.filter && b.IsTrusted) {
			continue
		}
		td.Dylibs = append(td.Dylibs, binaryDocument(b))
	}
	for _, f := range t.Files {
		td.Files = append(td.Files, itemDocument(f))
	}
	for _, c := range t.Connections {
		td.Connections = append(td.Connections, itemDocument(c))
	}

	return td
}

func binaryDocument(b *entities.Binary) *entities.BinaryDocument {
	if b == nil {
		return nil
	}
	doc := &entities.BinaryDocument{
		Kind:               b.Kind.String(),
		Name:               b.Name,
		Path:               b.Path,
		SignedByApple:      b.SignedByVendor,
		SigningAuthorities: append([]string{}, b.SigningAuthorities...),
		SignatureStatus:    entities.SignatureStatusOK,
		IsTrusted:          b.IsTrusted,
		Attributes:         b.Attributes,
	}
	if b.SignatureError != "" {
		doc.SignatureStatus = b.SignatureError
	}
	if b.Metadata.Format != "" && b.Metadata.Format != "unknown" {
		doc.Format = b.Metadata.Format
		doc.Arch = b.Metadata.Arch
	}
	if b.Hashes != nil {
		h := *b.Hashes
		doc.Hash = &h
	}
	return doc
}

func itemDocument(item entities.Item) entities.ItemDocument {
	doc := entities.ItemDocument{
		Kind:       item.Kind.String(),
		Name:       item.Name,
		Path:       item.Path,
		IsTrusted:  item.IsTrusted,
		Attributes: item.Attributes,
	}
	if item.Kind == entities.ItemOpenFile {
		fd := item.Descriptor
		doc.Descriptor = &fd
	}
	if item.Socket != nil {
		s := *item.Socket
		doc.Socket = &s
	}
	return doc
}
