package recall

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// 相似度度量
const (
	MetricCosine  = "cosine"
	MetricJaccard = "jaccard"
)

// SimilarityEngine 计算租户矩阵中所有用户两两之间的相似度。
// 每次请求全量计算，不缓存；行之间并行计算，结果与调度顺序无关。
type SimilarityEngine struct {
	// Metric 相似度度量方式：cosine（默认）/ jaccard
	Metric string

	// MinCommonItems 两个用户至少需要多少个共同商品才有相似度，默认 1
	MinCommonItems int

	// Workers 并行计算的 goroutine 上限，<= 0 时使用 GOMAXPROCS
	Workers int
}

// ValidateMetric 检查度量名称是否受支持
func ValidateMetric(metric string) error {
	switch metric {
	case "", MetricCosine, MetricJaccard:
		return nil
	default:
		return fmt.Errorf("unknown similarity metric: %s", metric)
	}
}

// Compute 计算相似度表。没有共同商品（或少于 MinCommonItems）的用户对不出现在表中。
func (e *SimilarityEngine) Compute(ctx context.Context, m *RatingMatrix) (*SimilarityTable, error) {
	if err := ValidateMetric(e.Metric); err != nil {
		return nil, err
	}
	minCommon := e.MinCommonItems
	if minCommon <= 0 {
		minCommon = 1
	}
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	users := m.Users()
	// rows[i] 只保存 j > i 的用户对，每个 goroutine 只写自己的行
	rows := make([]map[string]float64, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range users {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[i] = e.computeRow(m, users, i, minCommon)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t := newSimilarityTable()
	for i, row := range rows {
		for v, sim := range row {
			t.set(users[i], v, sim)
		}
	}
	t.finalize()
	return t, nil
}

func (e *SimilarityEngine) computeRow(m *RatingMatrix, users []string, i, minCommon int) map[string]float64 {
	u := users[i]
	uItems := m.UserItems(u)

	// 通过倒排表统计共同商品数，只访问真正有交集的用户
	shared := make(map[string]int)
	for p := range uItems {
		for v := range m.ItemUsers(p) {
			if v > u {
				shared[v]++
			}
		}
	}

	row := make(map[string]float64, len(shared))
	for v, n := range shared {
		if n < minCommon {
			continue
		}
		row[v] = e.similarity(n, len(uItems), len(m.UserItems(v)))
	}
	return row
}

// similarity 基于二值评分计算：shared 为共同商品数，nu / nv 为两个用户各自的商品数。
func (e *SimilarityEngine) similarity(shared, nu, nv int) float64 {
	switch e.Metric {
	case MetricJaccard:
		return float64(shared) / float64(nu+nv-shared)
	default:
		return float64(shared) / math.Sqrt(float64(nu)*float64(nv))
	}
}

// Neighbor 是一个近邻用户及其相似度
type Neighbor struct {
	UserID     string
	Similarity float64
}

// SimilarityTable 是对称的用户相似度表，取值范围 [0, 1]。
type SimilarityTable struct {
	sims      map[string]map[string]float64
	neighbors map[string][]Neighbor
	pairs     int
}

func newSimilarityTable() *SimilarityTable {
	return &SimilarityTable{
		sims:      make(map[string]map[string]float64),
		neighbors: make(map[string][]Neighbor),
	}
}

func (t *SimilarityTable) set(a, b string, sim float64) {
	if t.sims[a] == nil {
		t.sims[a] = make(map[string]float64)
	}
	if t.sims[b] == nil {
		t.sims[b] = make(map[string]float64)
	}
	if _, ok := t.sims[a][b]; !ok {
		t.pairs++
	}
	t.sims[a][b] = sim
	t.sims[b][a] = sim
}

// finalize 预先排好每个用户的近邻列表：相似度降序，相同时 user id 升序。
func (t *SimilarityTable) finalize() {
	for u, row := range t.sims {
		list := make([]Neighbor, 0, len(row))
		for v, sim := range row {
			list = append(list, Neighbor{UserID: v, Similarity: sim})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].Similarity != list[j].Similarity {
				return list[i].Similarity > list[j].Similarity
			}
			return list[i].UserID < list[j].UserID
		})
		t.neighbors[u] = list
	}
}

// Get 返回两个用户的相似度；用户对没有定义时 ok 为 false。
func (t *SimilarityTable) Get(a, b string) (float64, bool) {
	sim, ok := t.sims[a][b]
	return sim, ok
}

// Neighbors 返回与 u 有定义相似度的所有用户（不含 u 自身），已排序，调用方不应修改。
func (t *SimilarityTable) Neighbors(u string) []Neighbor {
	return t.neighbors[u]
}

// TopK 返回前 k 个近邻，不足 k 个时全部返回
func (t *SimilarityTable) TopK(u string, k int) []Neighbor {
	list := t.neighbors[u]
	if k > 0 && len(list) > k {
		return list[:k]
	}
	return list
}

// Len 返回有定义的无序用户对数量
func (t *SimilarityTable) Len() int { return t.pairs }
