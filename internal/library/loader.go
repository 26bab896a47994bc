package library

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ctxlog"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/document"
)

// Loader fills a Library from directory trees on any afs backed storage.
type Loader struct {
	fs      afs.Service
	Exclude []string // path globs matched against each file's base name and path
	Strict  bool     // fail on the first unreadable document instead of skipping it
}

// NewLoader returns a loader over the default afs service.
func NewLoader() *Loader {
	return &Loader{fs: afs.New()}
}

// NewLoaderWithService returns a loader over fs.
func NewLoaderWithService(fs afs.Service) *Loader {
	return &Loader{fs: fs}
}

// LoadReport summarizes one Load call.
type LoadReport struct {
	Loaded  []string          `json:"loaded"`
	Skipped map[string]string `json:"skipped,omitempty"` // URL -> reason
}

// Load reads every *.xml below root into lib.
func (l *Loader) Load(ctx context.Context, lib *Library, root string) (*LoadReport, error) {
	root = url.Normalize(root, file.Scheme)

	objects, err := l.fs.List(ctx, root, option.NewRecursive(true))
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", root)
	}

	var urls []string
	for _, obj := range objects {
		if obj.IsDir() || !strings.EqualFold(path.Ext(obj.Name()), ".xml") {
			continue
		}
		urls = append(urls, obj.URL())
	}
	return l.LoadFiles(ctx, lib, urls)
}

// LoadFiles reads the given documents into lib. Plain paths are taken as
// local files.
func (l *Loader) LoadFiles(ctx context.Context, lib *Library, urls []string) (*LoadReport, error) {
	log := ctxlog.FromContext(ctx)
	report := &LoadReport{Skipped: map[string]string{}}
	for _, u := range urls {
		u = url.Normalize(u, file.Scheme)
		if l.excluded(u) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		data, err := l.fs.DownloadWithURL(ctx, u)
		if err != nil {
			return report, errors.Wrapf(err, "read %s", u)
		}
		doc, err := document.ReadDocument(bytes.NewReader(data))
		if err == nil {
			err = lib.AddFrom(u, doc)
		}
		if err != nil {
			if l.Strict {
				return report, errors.Wrapf(err, "load %s", u)
			}
			log.Warn("skipping document", "url", u, "error", err)
			report.Skipped[u] = err.Error()
			continue
		}
		log.Debug("loaded document", "url", u, "vlnv", doc.DocumentVLNV().String())
		report.Loaded = append(report.Loaded, u)
	}
	return report, nil
}

func (l *Loader) excluded(u string) bool {
	p := url.Path(u)
	for _, pattern := range l.Exclude {
		if ok, _ := path.Match(pattern, path.Base(p)); ok {
			return true
		}
		if ok, _ := path.Match(pattern, p); ok {
			return true
		}
	}
	return false
}
