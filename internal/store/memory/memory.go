// Package memory implements store.Store over in-process maps. It groups keys
// into pseudo-directories the way object stores do and pages by marker, so
// it doubles as the reference backend for tests and offline demos.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dorkyrobot/cftp/internal/store"
	"github.com/dorkyrobot/cftp/internal/vpath"
)

const backendName = "memory"

type object struct {
	attrs store.ObjectAttrs
	body  []byte
}

type container struct {
	objects map[string]*object
}

type region struct {
	private    bool
	containers map[string]*container
}

// Store is an in-memory object store.
type Store struct {
	delim vpath.Delimiter

	mu      sync.Mutex
	regions map[string]*region
	calls   map[string]int
	faults  map[string]error
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Conn  = (*Conn)(nil)
)

// New returns an empty store grouping keys by d.
func New(d vpath.Delimiter) *Store {
	return &Store{
		delim:   d,
		regions: make(map[string]*region),
		calls:   make(map[string]int),
		faults:  make(map[string]error),
	}
}

// AddRegion advertises a region. private controls whether secure
// connections to it succeed.
func (s *Store) AddRegion(name string, private bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.regions[name]; ok {
		r.private = private
		return
	}
	s.regions[name] = &region{private: private, containers: make(map[string]*container)}
}

// AddContainer creates an empty container, adding the region if needed.
func (s *Store) AddContainer(regionName, name string) {
	if _, ok := s.regionLocked(regionName); !ok {
		s.AddRegion(regionName, false)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.regions[regionName]
	if _, ok := r.containers[name]; !ok {
		r.containers[name] = &container{objects: make(map[string]*object)}
	}
}

// Put stores body under key, creating the region and container if needed.
func (s *Store) Put(regionName, containerName, key string, body []byte, contentType string) {
	s.PutAttrs(regionName, containerName, store.ObjectAttrs{
		Name:         key,
		ContentType:  contentType,
		LastModified: time.Now().UTC(),
	}, body)
}

// PutAttrs stores body with explicit attributes. Size and ETag are derived
// from body.
func (s *Store) PutAttrs(regionName, containerName string, attrs store.ObjectAttrs, body []byte) {
	s.AddContainer(regionName, containerName)
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := md5.Sum(body)
	attrs.Size = uint64(len(body))
	attrs.ETag = hex.EncodeToString(sum[:])
	if attrs.ContentType == "" {
		attrs.ContentType = "application/octet-stream"
	}
	s.regions[regionName].containers[containerName].objects[attrs.Name] = &object{
		attrs: attrs,
		body:  append([]byte(nil), body...),
	}
}

// Fail makes every subsequent call to op return err. A nil err clears the
// fault.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// Calls reports how many times op has been invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// ResetCalls zeroes the call counters.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[string]int)
}

func (s *Store) enter(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	if err := s.faults[op]; err != nil {
		return &store.Error{Op: op, Backend: backendName, Err: err}
	}
	return nil
}

func (s *Store) regionLocked(name string) (*region, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regions[name]
	return r, ok
}

func (s *Store) ListRegions(ctx context.Context) ([]string, error) {
	if err := s.enter("ListRegions"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.regions))
	for name := range s.regions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Connect(ctx context.Context, regionName string, secure bool) (store.Conn, error) {
	if err := s.enter("Connect"); err != nil {
		return nil, err
	}
	r, ok := s.regionLocked(regionName)
	if !ok {
		return nil, &store.Error{Op: "Connect", Backend: backendName, Err: store.ErrNoSuchRegion}
	}
	if secure && !r.private {
		return nil, &store.Error{Op: "Connect", Backend: backendName, Err: store.ErrRegionUnreachable}
	}
	return &Conn{s: s, region: regionName, secure: secure}, nil
}

// Conn is a connection to one region of a Store.
type Conn struct {
	s      *Store
	region string
	secure bool
}

func (c *Conn) Region() string { return c.region }
func (c *Conn) Secure() bool   { return c.secure }

func (c *Conn) container(op, name string) (*container, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	ct, ok := c.s.regions[c.region].containers[name]
	if !ok {
		return nil, &store.Error{Op: op, Backend: backendName, Container: name, Err: store.ErrNoSuchContainer}
	}
	return ct, nil
}

func (c *Conn) ListContainers(ctx context.Context, marker string, limit int) ([]store.ContainerAttrs, error) {
	if err := c.s.enter("ListContainers"); err != nil {
		return nil, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	r := c.s.regions[c.region]
	names := make([]string, 0, len(r.containers))
	for name := range r.containers {
		if name > marker {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	names = truncate(names, limit)

	out := make([]store.ContainerAttrs, 0, len(names))
	for _, name := range names {
		var total, count uint64
		for _, o := range r.containers[name].objects {
			total += o.attrs.Size
			count++
		}
		out = append(out, store.ContainerAttrs{Name: name, Bytes: &total, Count: &count})
	}
	return out, nil
}

func (c *Conn) HeadContainer(ctx context.Context, name string) error {
	if err := c.s.enter("HeadContainer"); err != nil {
		return err
	}
	_, err := c.container("HeadContainer", name)
	return err
}

func (c *Conn) ListObjects(ctx context.Context, containerName, prefix, marker string, limit int) ([]store.ObjectAttrs, error) {
	if err := c.s.enter("ListObjects"); err != nil {
		return nil, err
	}
	ct, err := c.container("ListObjects", containerName)
	if err != nil {
		return nil, err
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var keys []string
	for key := range ct.objects {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok || rest == "" || strings.Contains(rest, string(c.s.delim)) || key <= marker {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	keys = truncate(keys, limit)

	out := make([]store.ObjectAttrs, 0, len(keys))
	for _, key := range keys {
		out = append(out, ct.objects[key].attrs)
	}
	return out, nil
}

func (c *Conn) ListPseudoDirectories(ctx context.Context, containerName, prefix, marker string, limit int) ([]store.ObjectAttrs, error) {
	if err := c.s.enter("ListPseudoDirectories"); err != nil {
		return nil, err
	}
	ct, err := c.container("ListPseudoDirectories", containerName)
	if err != nil {
		return nil, err
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	seen := make(map[string]struct{})
	for key := range ct.objects {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		i := strings.Index(rest, string(c.s.delim))
		if i < 0 {
			continue
		}
		dir := prefix + rest[:i+len(c.s.delim)]
		if dir > marker {
			seen[dir] = struct{}{}
		}
	}
	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	dirs = truncate(dirs, limit)

	out := make([]store.ObjectAttrs, 0, len(dirs))
	for _, dir := range dirs {
		out = append(out, store.ObjectAttrs{Name: dir, ContentType: store.PseudoDirType})
	}
	return out, nil
}

func (c *Conn) ObjectAttrs(ctx context.Context, containerName, key string) (*store.ObjectAttrs, error) {
	if err := c.s.enter("ObjectAttrs"); err != nil {
		return nil, err
	}
	ct, err := c.container("ObjectAttrs", containerName)
	if err != nil {
		return nil, err
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if o, ok := ct.objects[key]; ok {
		attrs := o.attrs
		return &attrs, nil
	}

	dir := strings.TrimSuffix(key, string(c.s.delim)) + string(c.s.delim)
	for k := range ct.objects {
		if strings.HasPrefix(k, dir) {
			return &store.ObjectAttrs{Name: dir, ContentType: store.PseudoDirType}, nil
		}
	}
	return nil, &store.Error{Op: "ObjectAttrs", Backend: backendName, Container: containerName, Key: key, Err: store.ErrNoSuchObject}
}

func (c *Conn) OpenObject(ctx context.Context, containerName, key string, chunkSize int) (io.ReadCloser, int64, error) {
	if err := c.s.enter("OpenObject"); err != nil {
		return nil, 0, err
	}
	ct, err := c.container("OpenObject", containerName)
	if err != nil {
		return nil, 0, err
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	o, ok := ct.objects[key]
	if !ok {
		return nil, 0, &store.Error{Op: "OpenObject", Backend: backendName, Container: containerName, Key: key, Err: store.ErrNoSuchObject}
	}
	return store.NewChunkReader(io.NopCloser(bytes.NewReader(o.body)), chunkSize), int64(len(o.body)), nil
}

func truncate(names []string, limit int) []string {
	if limit <= 0 {
		limit = store.DefaultPageSize
	}
	if len(names) > limit {
		return names[:limit]
	}
	return names
}
