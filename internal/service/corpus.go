package service

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"go.uber.org/zap"
)

// CorpusDocument is one recipe file found under a corpus root
type CorpusDocument struct {
	Name     string
	Category string
	Ref      string
}

// ScanCorpus lists <category>/.../<name>.md files in lexical order, skipping
// README files. When two files share a name the first one wins.
func ScanCorpus(fsys fs.FS, logger *zap.Logger) ([]CorpusDocument, error) {
	var docs []CorpusDocument
	seen := make(map[string]string)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".md" || strings.HasPrefix(d.Name(), "README") {
			return nil
		}

		name := strings.TrimSuffix(d.Name(), ".md")
		if prev, dup := seen[name]; dup {
			logger.Warn("duplicate recipe name in corpus", zap.String("name", name), zap.String("kept", prev), zap.String("skipped", p))
			return nil
		}
		seen[name] = p

		category := ""
		if i := strings.Index(p, "/"); i > 0 {
			category = p[:i]
		}
		docs = append(docs, CorpusDocument{Name: name, Category: category, Ref: p})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan corpus: %w", err)
	}
	return docs, nil
}
