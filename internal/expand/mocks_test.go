package expand

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"
)

type fakeCompletion struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeCompletion) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

type fakeCache struct {
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string, out any) (bool, error) {
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return err
	}
	c.entries[key] = buf.Bytes()
	return nil
}

func (c *fakeCache) Clear(_ context.Context, key string) error {
	if key == "" {
		c.entries = make(map[string][]byte)
		return nil
	}
	delete(c.entries, key)
	return nil
}
