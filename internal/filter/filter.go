// Package filter evaluates user supplied JavaScript predicates against posts,
// e.g. `post.reactions.total > 100 && post.content.includes("launch")`.
package filter

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/law-makers/fbscrape/pkg/models"
)

// evalTimeout bounds a single predicate evaluation
const evalTimeout = time.Second

// Filter is a compiled post predicate. It is safe for concurrent use.
type Filter struct {
	src  string
	prog *goja.Program
	mu   sync.Mutex
	vm   *goja.Runtime
}

// Compile parses expr. The post is exposed as `post` with the JSON field names.
func Compile(expr string) (*Filter, error) {
	prog, err := goja.Compile("filter", "("+expr+")", true)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
	}
	return &Filter{src: expr, prog: prog, vm: goja.New()}, nil
}

// String returns the source expression
func (f *Filter) String() string {
	return f.src
}

// Match reports whether post satisfies the predicate
func (f *Filter) Match(post models.Post) (bool, error) {
	obj, err := toObject(post)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.vm.Set("post", obj); err != nil {
		return false, fmt.Errorf("failed to bind post: %w", err)
	}

	timer := time.AfterFunc(evalTimeout, func() {
		f.vm.Interrupt("filter timed out")
	})
	v, err := f.vm.RunProgram(f.prog)
	timer.Stop()
	f.vm.ClearInterrupt()

	if err != nil {
		return false, fmt.Errorf("filter %q: %w", f.src, err)
	}
	return v.ToBoolean(), nil
}

// Apply keeps the posts that match. Posts the predicate fails on are dropped
// and the first such error is returned alongside the kept posts.
func (f *Filter) Apply(posts []models.Post) ([]models.Post, error) {
	var firstErr error
	kept := posts[:0:0]
	for _, p := range posts {
		ok, err := f.Match(p)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			kept = append(kept, p)
		}
	}
	return kept, firstErr
}

func toObject(post models.Post) (map[string]any, error) {
	// expose empty arrays rather than null so `.length` always works
	if post.Images == nil {
		post.Images = []string{}
	}
	if post.Videos == nil {
		post.Videos = []string{}
	}
	raw, err := json.Marshal(post)
	if err != nil {
		return nil, fmt.Errorf("failed to encode post: %w", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode post: %w", err)
	}
	return obj, nil
}
