package dsdomain

import (
	"fmt"
	"io"

	"github.com/function61/gokit/jsonfile"
)

// directories keyed by name, remembering insertion order so evaluation output is deterministic
type Snapshot struct {
	directories []*Directory
	byName      map[string]*Directory
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		directories: []*Directory{},
		byName:      map[string]*Directory{},
	}
}

func (s *Snapshot) Add(dir Directory) error {
	if _, exists := s.byName[dir.Name]; exists {
		return fmt.Errorf("duplicate directory name: %s", dir.Name)
	}

	stored := &dir
	s.directories = append(s.directories, stored)
	s.byName[dir.Name] = stored

	return nil
}

func (s *Snapshot) ByName(name string) *Directory {
	if s == nil {
		return nil
	}

	return s.byName[name]
}

// nil-safe
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}

	return len(s.directories)
}

// copies, in insertion order
func (s *Snapshot) All() []Directory {
	copied := []Directory{}
	if s == nil {
		return copied
	}

	for _, dir := range s.directories {
		copied = append(copied, *dir)
	}

	return copied
}

// on-disk format is a JSON array of directories, in evaluation order
func ReadSnapshot(input io.Reader) (*Snapshot, error) {
	dirs := []Directory{}
	if err := jsonfile.Unmarshal(input, &dirs, true); err != nil {
		return nil, err
	}

	snapshot := NewSnapshot()
	for _, dir := range dirs {
		if err := snapshot.Add(dir); err != nil {
			return nil, err
		}
	}

	return snapshot, nil
}

func WriteSnapshot(output io.Writer, snapshot *Snapshot) error {
	return jsonfile.Marshal(output, snapshot.All())
}
