package devbackend

import (
	"sort"
	"sync"

	"degradation_monitor/internal/models"
)

// Store is the in-memory state of the dev analysis API.
type Store struct {
	mu        sync.RWMutex
	tree      []models.CategoryNode
	records   map[models.CategoryID][]models.WorkRecord
	baselines map[models.CategoryID]models.BaselineDefinition
	results   map[models.CategoryID]models.AnalysisResult
}

func NewStore(tree []models.CategoryNode) *Store {
	return &Store{
		tree:      tree,
		records:   make(map[models.CategoryID][]models.WorkRecord),
		baselines: make(map[models.CategoryID]models.BaselineDefinition),
		results:   make(map[models.CategoryID]models.AnalysisResult),
	}
}

// DefaultTree is the category tree the dev backend starts with.
func DefaultTree() []models.CategoryNode {
	plantA, line1, plantB := models.CategoryID(1), models.CategoryID(2), models.CategoryID(5)
	return []models.CategoryNode{
		{ID: plantA, Name: "Plant A", Children: []models.CategoryNode{
			{ID: line1, Name: "Line 1", ParentID: &plantA, Children: []models.CategoryNode{
				{ID: 3, Name: "Press", ParentID: &line1, Children: []models.CategoryNode{}},
				{ID: 4, Name: "Welder", ParentID: &line1, Children: []models.CategoryNode{}},
			}},
		}},
		{ID: plantB, Name: "Plant B", Children: []models.CategoryNode{
			{ID: 6, Name: "Conveyor", ParentID: &plantB, Children: []models.CategoryNode{}},
		}},
	}
}

// Tree returns the whole tree, or the subtree rooted at root.
func (s *Store) Tree(root models.CategoryID) ([]models.CategoryNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if root == models.NoCategory {
		return s.tree, true
	}
	if n, ok := findNode(s.tree, root); ok {
		return []models.CategoryNode{n}, true
	}
	return nil, false
}

// Leaves returns every leaf of the tree.
func (s *Store) Leaves() []models.LeafCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.FlattenLeaves(s.tree)
}

// IsLeaf reports whether id names a leaf category.
func (s *Store) IsLeaf(id models.CategoryID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := findNode(s.tree, id)
	return ok && n.IsLeaf()
}

// Records returns a copy of the category's records within [start, end].
// Empty bounds are open.
func (s *Store) Records(id models.CategoryID, start, end models.Timestamp) []models.WorkRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.WorkRecord, 0, len(s.records[id]))
	for _, r := range s.records[id] {
		if start != "" && r.RecordedAt < start {
			continue
		}
		if end != "" && r.RecordedAt > end {
			continue
		}
		out = append(out, r)
	}
	return out
}

// AppendRecords upserts records by RecordedAt and keeps them ordered, then
// recomputes the category's results.
func (s *Store) AppendRecords(id models.CategoryID, recs ...models.WorkRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byTS := make(map[models.Timestamp]int, len(s.records[id]))
	cur := s.records[id]
	for i, r := range cur {
		byTS[r.RecordedAt] = i
	}
	for _, r := range recs {
		r.CategoryID = id
		if i, ok := byTS[r.RecordedAt]; ok {
			cur[i] = r
			continue
		}
		byTS[r.RecordedAt] = len(cur)
		cur = append(cur, r)
	}
	sort.SliceStable(cur, func(i, j int) bool { return cur[i].RecordedAt < cur[j].RecordedAt })
	s.records[id] = cur
	s.recomputeLocked(id)
}

// Results returns the stored analysis results; unanalyzed categories yield a nil trend.
func (s *Store) Results(id models.CategoryID) models.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[id]
	if !ok {
		return models.AnalysisResult{Anomalies: []models.AnomalyResult{}}
	}
	res.Anomalies = append([]models.AnomalyResult{}, res.Anomalies...)
	return res
}

// Baseline returns the persisted definition, if any.
func (s *Store) Baseline(id models.CategoryID) (models.BaselineDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.baselines[id]
	return def, ok
}

// SaveBaseline replaces the definition and retrains the category.
func (s *Store) SaveBaseline(id models.CategoryID, def models.BaselineDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if def.ExcludedPoints == nil {
		def.ExcludedPoints = []models.Timestamp{}
	}
	s.baselines[id] = def
	s.recomputeLocked(id)
}

// DeleteBaseline removes the definition and its anomaly results. Reports
// whether a definition existed.
func (s *Store) DeleteBaseline(id models.CategoryID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.baselines[id]
	delete(s.baselines, id)
	s.recomputeLocked(id)
	return existed
}

// RunAnalysis recomputes every leaf and returns how many were processed.
func (s *Store) RunAnalysis() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	leaves := models.FlattenLeaves(s.tree)
	for _, l := range leaves {
		s.recomputeLocked(l.ID)
	}
	return len(leaves)
}

// DashboardRows joins results and baseline status for every leaf.
func (s *Store) DashboardRows() []models.DashboardRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	leaves := models.FlattenLeaves(s.tree)
	rows := make([]models.DashboardRow, 0, len(leaves))
	for _, l := range leaves {
		row := models.DashboardRow{
			CategoryID:     l.ID,
			CategoryPath:   l.Path,
			BaselineStatus: models.BaselineUnconfigured,
		}
		if res, ok := s.results[l.ID]; ok {
			row.Trend = res.Trend
			row.AnomalyCount = len(res.Anomalies)
		}
		if _, ok := s.baselines[l.ID]; ok {
			row.BaselineStatus = models.BaselineConfigured
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *Store) recomputeLocked(id models.CategoryID) {
	recs := s.records[id]
	res := models.AnalysisResult{Trend: computeTrend(recs), Anomalies: []models.AnomalyResult{}}
	if def, ok := s.baselines[id]; ok {
		res.Anomalies = computeAnomalies(recs, def)
	}
	s.results[id] = res
}

func findNode(nodes []models.CategoryNode, id models.CategoryID) (models.CategoryNode, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
		if found, ok := findNode(n.Children, id); ok {
			return found, true
		}
	}
	return models.CategoryNode{}, false
}
