// Package graph assembles extracted entities and inferred edges into one
// knowledge graph, assigns every entity to a cluster, and computes
// aggregate statistics.
package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cratescope/internal/diag"
	"cratescope/internal/entity"
)

// ExternalNode is a synthetic placeholder standing in for a referenced
// symbol that resolves to no extracted entity.
type ExternalNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Cluster groups entity ids under one logical layer or module.
type Cluster struct {
	Name  string   `json:"name"`
	Nodes []string `json:"nodes"`
}

// HotSpot is one entity ranked by total inbound edge weight.
type HotSpot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Inbound int    `json:"inbound"`
}

// Stats aggregates counts over the assembled graph.
type Stats struct {
	EntityCount    int                     `json:"entityCount"`
	ExternalCount  int                     `json:"externalCount"`
	EdgeCount      int                     `json:"edgeCount"`
	EntitiesByKind map[entity.Kind]int     `json:"entitiesByKind"`
	EdgesByKind    map[entity.EdgeKind]int `json:"edgesByKind"`
	ClusterSizes   map[string]int          `json:"clusterSizes"`
	HotSpots       []HotSpot               `json:"hotSpots,omitempty"`
}

// Graph is the assembled knowledge graph. Once assembly returns, the
// graph is immutable; readers never observe partial state.
type Graph struct {
	Entities  []entity.Entity `json:"entities"`
	Externals []ExternalNode  `json:"externals,omitempty"`
	Edges     []entity.Edge   `json:"edges"`
	Clusters  []Cluster       `json:"clusters"`
	Stats     Stats           `json:"stats"`
}

const hotSpotLimit = 10

// Assemble merges entities and edges into a graph. Placeholder nodes are
// materialized for every external edge endpoint so no edge dangles; a
// dangling non-external endpoint is a structural inconsistency and fails
// the run.
func Assemble(entities []entity.Entity, edges []entity.Edge, diags *diag.Collector) (*Graph, error) {
	ids := make(map[string]bool, len(entities))
	for i := range entities {
		id := entities[i].ID
		if ids[id] {
			suffixed := fmt.Sprintf("%s~%d", id, i)
			diags.Addf(diag.ParseDiagnostic, entities[i].File, entities[i].Name,
				"duplicate entity id %s; renamed %s", id, suffixed)
			entities[i].ID = suffixed
			id = suffixed
		}
		ids[id] = true
	}

	externalSeen := make(map[string]bool)
	var externals []ExternalNode
	for _, e := range edges {
		for _, endpoint := range []string{e.From, e.To} {
			if ids[endpoint] {
				continue
			}
			if !entity.IsExternal(endpoint) {
				return nil, diag.NewScopeError(diag.StructuralInconsistency,
					fmt.Sprintf("edge endpoint %q names no entity", endpoint), nil)
			}
			if !externalSeen[endpoint] {
				externalSeen[endpoint] = true
				externals = append(externals, ExternalNode{
					ID:   endpoint,
					Name: strings.TrimPrefix(endpoint, entity.ExternalPrefix),
				})
			}
		}
	}
	sort.Slice(externals, func(i, j int) bool { return externals[i].ID < externals[j].ID })

	clusters := classify(entities)

	g := &Graph{
		Entities:  entities,
		Externals: externals,
		Edges:     edges,
		Clusters:  clusters,
	}
	g.Stats = computeStats(g)
	return g, nil
}

// layerVocab maps path vocabulary to the four role layers. Checked in a
// fixed order so overlapping vocabularies resolve the same way every run.
var layerVocab = []struct {
	layer string
	words []string
}{
	{"Domain Layer", []string{"domain", "entity", "entities", "model", "models"}},
	{"Application Layer", []string{"service", "services", "application", "handler", "handlers", "usecase"}},
	{"Infrastructure Layer", []string{"repo", "repository", "db", "database", "storage", "persistence"}},
	{"Interface Layer", []string{"api", "http", "web", "cli", "rpc", "grpc"}},
}

const fallbackCluster = "Utilities"

// clusterFor assigns one entity to exactly one cluster. Rule order:
// explicit enclosing module first, then path vocabulary, then the
// Utilities fallback. First match wins.
func clusterFor(e *entity.Entity, enclosingModule string) string {
	if enclosingModule != "" {
		return "Module: " + enclosingModule
	}

	haystack := strings.ToLower(e.File + "/" + e.Package)
	parts := strings.FieldsFunc(haystack, func(r rune) bool {
		return r == '/' || r == '.' || r == '_' || r == '-'
	})
	for _, lv := range layerVocab {
		for _, w := range lv.words {
			for _, p := range parts {
				if p == w {
					return lv.layer
				}
			}
		}
	}
	return fallbackCluster
}

func classify(entities []entity.Entity) []Cluster {
	// Nearest enclosing mod block per entity, per file
	modsByFile := make(map[string][]*entity.Entity)
	for i := range entities {
		if entities[i].Kind == entity.KindModule {
			modsByFile[entities[i].File] = append(modsByFile[entities[i].File], &entities[i])
		}
	}

	members := make(map[string][]string)
	for i := range entities {
		e := &entities[i]
		enclosing := ""
		best := -1
		for _, m := range modsByFile[e.File] {
			if m.ID == e.ID {
				continue
			}
			if m.Span[1] > m.Span[0] && m.Span[0] <= e.Span[0] && e.Span[1] <= m.Span[1] {
				size := m.Span[1] - m.Span[0]
				if best == -1 || size < best {
					best = size
					enclosing = m.Name
				}
			}
		}
		name := clusterFor(e, enclosing)
		members[name] = append(members[name], e.ID)
	}

	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	clusters := make([]Cluster, 0, len(names))
	for _, name := range names {
		ids := members[name]
		sort.Strings(ids)
		clusters = append(clusters, Cluster{Name: name, Nodes: ids})
	}
	return clusters
}

func computeStats(g *Graph) Stats {
	s := Stats{
		EntityCount:    len(g.Entities),
		ExternalCount:  len(g.Externals),
		EdgeCount:      len(g.Edges),
		EntitiesByKind: make(map[entity.Kind]int),
		EdgesByKind:    make(map[entity.EdgeKind]int),
		ClusterSizes:   make(map[string]int),
	}
	for i := range g.Entities {
		s.EntitiesByKind[g.Entities[i].Kind]++
	}
	for _, e := range g.Edges {
		s.EdgesByKind[e.Kind]++
	}
	for _, c := range g.Clusters {
		s.ClusterSizes[c.Name] = len(c.Nodes)
	}

	inbound := make(map[string]int)
	for _, e := range g.Edges {
		inbound[e.To] += e.Weight
	}
	names := make(map[string]string, len(g.Entities))
	for i := range g.Entities {
		names[g.Entities[i].ID] = g.Entities[i].Name
	}
	var spots []HotSpot
	for id, w := range inbound {
		name, ok := names[id]
		if !ok {
			// external placeholders are not hot spots
			continue
		}
		spots = append(spots, HotSpot{ID: id, Name: name, Inbound: w})
	}
	sort.Slice(spots, func(i, j int) bool {
		if spots[i].Inbound != spots[j].Inbound {
			return spots[i].Inbound > spots[j].Inbound
		}
		return spots[i].ID < spots[j].ID
	})
	if len(spots) > hotSpotLimit {
		spots = spots[:hotSpotLimit]
	}
	s.HotSpots = spots
	return s
}

// ClusterOf returns the cluster name an entity id was assigned to, or ""
// for unknown ids.
func (g *Graph) ClusterOf(id string) string {
	for _, c := range g.Clusters {
		for _, n := range c.Nodes {
			if n == id {
				return c.Name
			}
		}
	}
	return ""
}

// EntityByID returns the entity with the given id, or nil.
func (g *Graph) EntityByID(id string) *entity.Entity {
	for i := range g.Entities {
		if g.Entities[i].ID == id {
			return &g.Entities[i]
		}
	}
	return nil
}

// EntitiesNamed returns all entities with the given name, in graph order.
func (g *Graph) EntitiesNamed(name string) []*entity.Entity {
	var out []*entity.Entity
	for i := range g.Entities {
		if g.Entities[i].Name == name {
			out = append(out, &g.Entities[i])
		}
	}
	return out
}

// OutEdges returns the edges leaving the given entity id.
func (g *Graph) OutEdges(id string) []entity.Edge {
	var out []entity.Edge
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// ToJSON serializes the graph. Output is deterministic: slices are
// pre-sorted at assembly and map keys serialize in sorted order.
func (g *Graph) ToJSON() ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// FromJSON deserializes a graph previously produced by ToJSON.
func FromJSON(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return &g, nil
}
