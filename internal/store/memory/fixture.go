package memory

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dorkyrobot/cftp/internal/store"
	"github.com/dorkyrobot/cftp/internal/vpath"
)

// Fixture is the YAML layout accepted by Load:
//
//	regions:
//	  DFW:
//	    private_network: true
//	    containers:
//	      photos:
//	        - key: 2024/cat.jpg
//	          content_type: image/jpeg
//	          body: meow
//	      empty: []
type Fixture struct {
	Regions map[string]RegionFixture `yaml:"regions"`
}

type RegionFixture struct {
	PrivateNetwork bool                       `yaml:"private_network,omitempty"`
	Containers     map[string][]ObjectFixture `yaml:"containers,omitempty"`
}

type ObjectFixture struct {
	Key           string    `yaml:"key"`
	Body          string    `yaml:"body,omitempty"`
	ContentType   string    `yaml:"content_type,omitempty"`
	LastModified  time.Time `yaml:"last_modified,omitempty"`
	StorageClass  string    `yaml:"storage_class,omitempty"`
	RestoreStatus string    `yaml:"restore_status,omitempty"`
}

// Load reads a YAML fixture file into a new store.
func Load(path string, d vpath.Delimiter) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return Parse(data, d)
}

// Parse builds a store from YAML fixture data.
func Parse(data []byte, d vpath.Delimiter) (*Store, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}

	s := New(d)
	for regionName, rf := range fx.Regions {
		s.AddRegion(regionName, rf.PrivateNetwork)
		for containerName, objects := range rf.Containers {
			s.AddContainer(regionName, containerName)
			for _, of := range objects {
				if of.Key == "" {
					return nil, fmt.Errorf("fixture %s/%s: object without key", regionName, containerName)
				}
				s.PutAttrs(regionName, containerName, store.ObjectAttrs{
					Name:          of.Key,
					ContentType:   of.ContentType,
					LastModified:  of.LastModified,
					StorageClass:  of.StorageClass,
					RestoreStatus: of.RestoreStatus,
				}, []byte(of.Body))
			}
		}
	}
	return s, nil
}
