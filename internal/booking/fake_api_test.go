package booking

import (
	"context"
	"encoding/json"
	"sync"
)

// fakeAPI serves canned responses keyed by "METHOD path" and records every
// call, so tests can assert both behavior and traffic.
type fakeAPI struct {
	mu        sync.Mutex
	responses map[string]any
	errs      map[string]error
	calls     []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{responses: make(map[string]any), errs: make(map[string]error)}
}

func (f *fakeAPI) respond(key string, v any) { f.responses[key] = v }
func (f *fakeAPI) fail(key string, err error) { f.errs[key] = err }

func (f *fakeAPI) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

func (f *fakeAPI) serve(ctx context.Context, key string, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, key)
	err := f.errs[key]
	v, ok := f.responses[key]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if !ok || out == nil {
		return nil
	}
	raw, merr := json.Marshal(v)
	if merr != nil {
		return merr
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeAPI) Get(ctx context.Context, path string, out any) error {
	return f.serve(ctx, "GET "+path, out)
}

func (f *fakeAPI) Post(ctx context.Context, path string, body, out any) error {
	return f.serve(ctx, "POST "+path, out)
}

// funcAPI lets a test script arbitrary behavior, e.g. blocking until the
// context is cancelled.
type funcAPI struct {
	get  func(ctx context.Context, path string, out any) error
	post func(ctx context.Context, path string, body, out any) error
}

func (f *funcAPI) Get(ctx context.Context, path string, out any) error {
	return f.get(ctx, path, out)
}

func (f *funcAPI) Post(ctx context.Context, path string, body, out any) error {
	return f.post(ctx, path, body, out)
}
