package label

import (
	"context"
	"strconv"
)

// DefaultFactPrefix is prepended to every published fact name.
const DefaultFactPrefix = "CCNet"

// Published fact names, before the prefix is applied.
const (
	FactCommitHash       = "GitCommitHash"
	FactParentHash       = "GitParentHash"
	FactTreeHash         = "GitTreeHash"
	FactBuildCycleNumber = "BuildCycleNumber"
	FactCheckinCount     = "GitCheckinCount"
	FactLabel            = "Label"
	FactRepositoryPath   = "GitRepositoryPath"
)

// Fact is one named value handed to the build host.
type Fact struct {
	Name  string
	Value string
}

// FactSet is an ordered list of facts.
type FactSet []Fact

// Get returns the value of the fact called name.
func (s FactSet) Get(name string) (string, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Map returns the facts keyed by name.
func (s FactSet) Map() map[string]string {
	m := make(map[string]string, len(s))
	for _, f := range s {
		m[f.Name] = f.Value
	}
	return m
}

// Facts returns the published form of f. The repository path fact is
// included only when repositoryPath is known.
func (f VersionFacts) Facts(prefix, repositoryPath string) FactSet {
	set := FactSet{
		{Name: prefix + FactCommitHash, Value: f.commitHash},
		{Name: prefix + FactParentHash, Value: f.parentHash},
		{Name: prefix + FactTreeHash, Value: f.treeHash},
		{Name: prefix + FactBuildCycleNumber, Value: strconv.Itoa(f.buildCycleNumber)},
		{Name: prefix + FactCheckinCount, Value: strconv.Itoa(f.checkinCount)},
		{Name: prefix + FactLabel, Value: f.label},
	}
	if repositoryPath != "" {
		set = append(set, Fact{Name: prefix + FactRepositoryPath, Value: repositoryPath})
	}
	return set
}

// Publisher hands facts to the build host.
// Implemented in the infrastructure layer.
type Publisher interface {
	Publish(ctx context.Context, facts FactSet) error
}
