// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package collectors

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/athola/auditor/internal/artifact"
	"github.com/athola/auditor/internal/collector"
	"github.com/athola/auditor/internal/model"
)

// Default cascade thresholds (spec §4.1.3): a pair becomes a candidate at
// the MinHash-estimated Jaccard stage, then must clear a stricter confirmed
// stage before it is reported.
const (
	defaultCandidateJaccard     = 0.70
	defaultConfirmedSimilarity  = 0.85
	defaultStructuralSimilarity = 0.80
)

// minFileTokens is the minimum token count for a file to be considered —
// small files produce unstable MinHash estimates and trivially match.
const minFileTokens = 40

func init() {
	collector.Register(&SimilarityCollector{})
}

// SimilarityMetrics holds structured metrics from a similarity pass.
type SimilarityMetrics struct {
	FilesIndexed   int
	CandidatePairs int
	ConfirmedPairs int
	Groups         int
}

// SimilarityCollector finds near-duplicate files via a two-stage cascade:
// MinHash-estimated Jaccard candidates, confirmed by cosine similarity (or,
// for documentation, heading-tree structural similarity).
type SimilarityCollector struct {
	metrics *SimilarityMetrics
}

// Name returns the collector name used for registration and filtering.
func (c *SimilarityCollector) Name() string { return "similarity" }

// fileSketch holds the precomputed similarity features for one file.
type fileSketch struct {
	art       artifact.Artifact
	ext       string
	isDoc     bool
	signature minhashSignature
	termFreq  map[string]int
	headings  []headingNode
}

type similarityThresholds struct {
	candidate   float64
	confirmed   float64
	structural  float64
}

func similarityLoadThresholds(opts model.CollectorOpts) similarityThresholds {
	t := similarityThresholds{
		candidate:  defaultCandidateJaccard,
		confirmed:  defaultConfirmedSimilarity,
		structural: defaultStructuralSimilarity,
	}
	if v, ok := opts.Thresholds["similarity.candidate_jaccard"]; ok {
		t.candidate = v
	}
	if v, ok := opts.Thresholds["similarity.confirmed_similarity"]; ok {
		t.confirmed = v
	}
	if v, ok := opts.Thresholds["similarity.structural_similarity"]; ok {
		t.structural = v
	}
	return t
}

// Collect indexes every source and documentation file, buckets candidates by
// extension and size to keep pairwise comparison tractable, then runs the
// candidate/confirm cascade and emits one Evidence per group member.
func (c *SimilarityCollector) Collect(ctx context.Context, repoPath string, opts model.CollectorOpts) (collector.Result, error) {
	excludes := mergeExcludes(opts.ExcludePatterns)
	thresholds := similarityLoadThresholds(opts)

	var sketches []*fileSketch

	walkErr := walkSourceFiles(repoPath, excludes, opts.IncludePatterns, func(absPath, relPath string, _ os.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		ext := strings.ToLower(filepathExt(relPath))
		isDoc := docExtensions[ext]
		if !isDoc && !sourceExtensions[ext] {
			return nil
		}

		content, err := FS.ReadFile(absPath)
		if err != nil {
			return nil //nolint:nilerr // unreadable file, skip
		}
		tokens := tokenize(string(content))
		if len(tokens) < minFileTokens {
			return nil
		}

		info, statErr := FS.Stat(absPath)
		lines, _ := countLines(absPath)
		art := artifact.Artifact{Path: relPath, Kind: artifact.KindFile, Lines: lines, InboundRefs: -1}
		if statErr == nil {
			art.ByteSize = info.Size()
			art.ModTime = info.ModTime()
		}

		sketch := &fileSketch{
			art:       art,
			ext:       ext,
			isDoc:     isDoc,
			signature: computeMinhashSignature(shingleHashes(tokens, shingleSize)),
			termFreq:  tokenFrequency(tokens),
		}
		if isDoc {
			sketch.headings = parseHeadings(string(content))
		}
		sketches = append(sketches, sketch)
		return nil
	})
	if walkErr != nil {
		return collector.Result{}, fmt.Errorf("walking files for similarity: %w", walkErr)
	}

	buckets := bucketSketches(sketches)

	uf := newUnionFind(len(sketches))
	m := &SimilarityMetrics{FilesIndexed: len(sketches)}
	pairBest := make(map[[2]int]pairScore)

	for _, idxs := range buckets {
		for i := 0; i < len(idxs); i++ {
			for j := i + 1; j < len(idxs); j++ {
				a, b := sketches[idxs[i]], sketches[idxs[j]]
				jaccard := estimateJaccard(a.signature, b.signature)
				if jaccard < thresholds.candidate {
					continue
				}
				m.CandidatePairs++

				var confirmed, structural float64
				accept := false
				if a.isDoc && b.isDoc {
					structural = headingTreeSimilarity(a.headings, b.headings)
					accept = structural >= thresholds.structural
				} else if !a.isDoc && !b.isDoc {
					confirmed = cosineSimilarity(a.termFreq, b.termFreq)
					accept = confirmed >= thresholds.confirmed
				}
				if !accept {
					continue
				}

				m.ConfirmedPairs++
				uf.union(idxs[i], idxs[j])
				key := pairKey(idxs[i], idxs[j])
				pairBest[key] = pairScore{jaccard: jaccard, confirmed: confirmed, structural: structural}
			}
		}
	}

	groups := make(map[int][]int)
	for i := range sketches {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	var result collector.Result
	groupIDs := make([]int, 0, len(groups))
	for root, members := range groups {
		if len(members) < 2 {
			continue
		}
		groupIDs = append(groupIDs, root)
	}
	sort.Ints(groupIDs)

	for _, root := range groupIDs {
		members := groups[root]
		sort.Ints(members)
		memberPaths := make([]string, len(members))
		for i, idx := range members {
			memberPaths[i] = sketches[idx].art.Path
		}
		groupID := fmt.Sprintf("sim-%s", shortHash(strings.Join(memberPaths, "|")))

		bestJaccard, bestConfirmed, bestStructural := bestScoresForGroup(members, pairBest)

		for _, idx := range members {
			sk := sketches[idx]
			result.Artifacts = append(result.Artifacts, sk.art)
			result.Evidence = append(result.Evidence, model.Evidence{
				ArtifactID:      sk.art.ID(),
				Source:          model.SourceSimilarity,
				SignalKind:      "near_duplicate",
				Weight:          clamp01(bestConfirmed),
				Confidence:      0.75,
				DetectorVersion: "similarity-v1",
				Observed: model.ObservedValue{
					Tag: model.ObservedSimilarityGroup,
					SimilarityGroup: &model.SimilarityGroupObserved{
						GroupID:              groupID,
						JaccardCandidate:     bestJaccard,
						ConfirmedSimilarity:  bestConfirmed,
						StructuralSimilarity: bestStructural,
						Members:              memberPaths,
					},
				},
			})
		}
		m.Groups++
	}

	c.metrics = m
	return result, nil
}

type pairScore struct {
	jaccard    float64
	confirmed  float64
	structural float64
}

func pairKey(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

// bestScoresForGroup reports the strongest pairwise scores observed among a
// group's members, used as the group's representative Evidence values.
func bestScoresForGroup(members []int, pairBest map[[2]int]pairScore) (jaccard, confirmed, structural float64) {
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			s, ok := pairBest[pairKey(members[i], members[j])]
			if !ok {
				continue
			}
			if s.jaccard > jaccard {
				jaccard = s.jaccard
			}
			if s.confirmed > confirmed {
				confirmed = s.confirmed
			}
			if s.structural > structural {
				structural = s.structural
			}
		}
	}
	return jaccard, confirmed, structural
}

// bucketSketches groups file indexes by extension and a coarse size bucket
// (doubling bands) so pairwise comparison only runs within plausible
// near-duplicate candidates rather than across the entire repository.
func bucketSketches(sketches []*fileSketch) map[string][]int {
	buckets := make(map[string][]int)
	for i, sk := range sketches {
		band := sizeBand(sk.art.Lines)
		key := fmt.Sprintf("%s:%d", sk.ext, band)
		buckets[key] = append(buckets[key], i)
	}
	return buckets
}

func sizeBand(lines int) int {
	band := 0
	for n := lines; n > 32; n /= 2 {
		band++
	}
	return band
}

// unionFind is a minimal disjoint-set structure for grouping transitively
// similar files.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// headingNode is one Markdown/ReStructuredText heading and its nesting level.
type headingNode struct {
	Level int
	Text  string
}

var mdHeadingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// parseHeadings extracts a document's heading outline for structural
// comparison. Only Markdown "#" headings are recognised; other formats (rST
// underlines, AsciiDoc) yield an empty outline, so such documents never
// confirm as structural near-duplicates.
func parseHeadings(content string) []headingNode {
	var headings []headingNode
	for _, line := range strings.Split(content, "\n") {
		m := mdHeadingPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		headings = append(headings, headingNode{Level: len(m[1]), Text: strings.ToLower(strings.TrimSpace(m[2]))})
	}
	return headings
}

// headingTreeSimilarity compares two documents' heading outlines. A heading
// text matches only when both documents use it at the same level. Returns
// matching / (|A| + |B| - matching) over the two heading-text sets, so a
// heading present in both at different levels counts as a non-match.
func headingTreeSimilarity(a, b []headingNode) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]int, len(a))
	for _, h := range a {
		setA[h.Text] = h.Level
	}
	setB := make(map[string]int, len(b))
	for _, h := range b {
		setB[h.Text] = h.Level
	}

	matching := 0
	for text, levelA := range setA {
		if levelB, ok := setB[text]; ok && levelA == levelB {
			matching++
		}
	}
	union := len(setA) + len(setB) - matching
	if union == 0 {
		return 0
	}
	return float64(matching) / float64(union)
}

// filepathExt returns the extension including the leading dot, with its case
// unchanged.
func filepathExt(relPath string) string {
	idx := strings.LastIndexByte(relPath, '.')
	if idx < 0 {
		return ""
	}
	return relPath[idx:]
}

// shortHash returns a short, stable hex digest for building group IDs.
func shortHash(s string) string {
	h := fnvHash(s)
	return fmt.Sprintf("%08x", h)
}

func fnvHash(s string) uint32 {
	const prime = 16777619
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// Metrics returns structured metrics from the most recent Collect call.
func (c *SimilarityCollector) Metrics() any { return c.metrics }

// Compile-time interface checks.
var _ collector.Collector = (*SimilarityCollector)(nil)
var _ collector.MetricsProvider = (*SimilarityCollector)(nil)
