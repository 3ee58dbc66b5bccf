package egg

import (
	"sort"
	"strings"

	"github.com/binzume/eggconv/geom"
	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/stat"
)

type UVAction int

const (
	UVKeep UVAction = iota
	UVWrap
	UVNormalize
)

func (a UVAction) String() string {
	switch a {
	case UVWrap:
		return "wrap"
	case UVNormalize:
		return "normalize"
	}
	return "keep"
}

// Classification thresholds.
const (
	AtlasMin float32 = -0.1
	AtlasMax float32 = 1.1

	// IntegerProximity is the distance to the nearest integer counted as aligned.
	IntegerProximity float32 = 0.02
	// IntegerAlignedRatio is the share of aligned coordinates that counts as tiling evidence.
	IntegerAlignedRatio float32 = 0.6

	// RegularIntervalMinValues and RegularIntervalMaxValues bound the number of distinct
	// rounded coordinates considered for interval analysis.
	RegularIntervalMinValues = 4
	RegularIntervalMaxValues = 64
	// RegularIntervalVariation is the maximum coefficient of variation of the gaps.
	RegularIntervalVariation = 0.1

	HistogramBins = 10
	// ClusteredVariation and UniformVariation are limits on the coefficient of variation of
	// the histogram bin counts.
	ClusteredVariation = 1.0
	UniformVariation   = 0.5

	// NegativeOffsetMin is the lowest minimum still treated as a small atlas offset.
	NegativeOffsetMin float32 = -1
	// NegativeOffsetMaxRange is the exclusive upper range of negative-offset atlases.
	NegativeOffsetMaxRange float32 = 5
	// NormalizeMaxRange is the largest range normalized without tiling evidence.
	NormalizeMaxRange float32 = 250
)

// UVBracket maps ranges above Above to Value. Tables are ordered by descending Above.
type UVBracket struct {
	Name  string
	Above float32
	Value float32
}

// WrapBrackets give the tiling divisor of the wrap repair.
var WrapBrackets = []UVBracket{
	{Name: "extreme", Above: 100, Value: 20},
	{Name: "large", Above: 50, Value: 10},
	{Name: "medium", Above: 15, Value: 4},
	{Name: "small", Above: 2.5, Value: 1},
}

// NormalizeBrackets give the tiling factor kept by the normalize repair.
var NormalizeBrackets = []UVBracket{
	{Name: "extreme", Above: 200, Value: 8},
	{Name: "massive", Above: 100, Value: 4},
	{Name: "large", Above: 50, Value: 2},
	{Name: "medium", Above: 15, Value: 1.5},
}

func bracketFor(table []UVBracket, r float32) UVBracket {
	for _, b := range table {
		if r > b.Above {
			return b
		}
	}
	return UVBracket{Name: "none", Value: 1}
}

var (
	terrainKeywords    = []string{"terrain", "island", "jungle", "cave"}
	overlayKeywords    = []string{"overlay", "multi"}
	proceduralKeywords = []string{"rock", "procedural"}
)

type UVInput struct {
	Name         string // mesh path
	Materials    []string
	VertexCount  int
	UVs          []geom.Vector2
	MultiTexture bool
}

type UVStats struct {
	MinU, MaxU, MinV, MaxV float32
	RangeU, RangeV, Range  float32
	Aspect                 float32
	NegativeRatio          float32
	IntegerRatio           float32
	RegularIntervals       bool
	Clustered              bool
	Uniform                bool
}

// InAtlas reports whether every coordinate lies in the atlas range.
func (s *UVStats) InAtlas() bool {
	return s.MinU >= AtlasMin && s.MaxU <= AtlasMax && s.MinV >= AtlasMin && s.MaxV <= AtlasMax
}

type UVDecision struct {
	Action  UVAction
	Rule    string
	Bracket string
	Value   float32 // divisor for wrap, tiling factor for normalize
	Stats   UVStats
}

// ComputeUVStats summarizes a UV channel. Non-finite coordinates are left out.
func ComputeUVStats(uvs []geom.Vector2) UVStats {
	var s UVStats
	finite := make([]geom.Vector2, 0, len(uvs))
	for _, uv := range uvs {
		if uv.IsFinite() {
			finite = append(finite, uv)
		}
	}
	uvs = finite
	if len(uvs) == 0 {
		return s
	}
	s.MinU, s.MinV = math32.Inf(1), math32.Inf(1)
	s.MaxU, s.MaxV = math32.Inf(-1), math32.Inf(-1)
	us := make([]float64, len(uvs))
	vs := make([]float64, len(uvs))
	negative, aligned := 0, 0
	for i, uv := range uvs {
		s.MinU, s.MaxU = math32.Min(s.MinU, uv.X), math32.Max(s.MaxU, uv.X)
		s.MinV, s.MaxV = math32.Min(s.MinV, uv.Y), math32.Max(s.MaxV, uv.Y)
		if uv.X < 0 || uv.Y < 0 {
			negative++
		}
		for _, c := range [2]float32{uv.X, uv.Y} {
			if math32.Abs(c-math32.Round(c)) <= IntegerProximity {
				aligned++
			}
		}
		us[i], vs[i] = float64(uv.X), float64(uv.Y)
	}
	s.RangeU, s.RangeV = s.MaxU-s.MinU, s.MaxV-s.MinV
	s.Range = math32.Max(s.RangeU, s.RangeV)
	if s.RangeU > 0 && s.RangeV > 0 {
		s.Aspect = math32.Max(s.RangeU, s.RangeV) / math32.Min(s.RangeU, s.RangeV)
	}
	s.NegativeRatio = float32(negative) / float32(len(uvs))
	s.IntegerRatio = float32(aligned) / float32(2*len(uvs))
	s.RegularIntervals = hasRegularIntervals(us) || hasRegularIntervals(vs)
	cu, uu := histogramShape(us, float64(s.MinU), float64(s.RangeU))
	cv, uv := histogramShape(vs, float64(s.MinV), float64(s.RangeV))
	s.Clustered = cu || cv
	s.Uniform = uu && uv
	return s
}

// hasRegularIntervals reports whether the distinct values (rounded to 0.01) are evenly spaced.
func hasRegularIntervals(values []float64) bool {
	seen := map[float64]bool{}
	var distinct []float64
	for _, v := range values {
		r := float64(math32.Round(float32(v)*100)) / 100
		if !seen[r] {
			seen[r] = true
			distinct = append(distinct, r)
			if len(distinct) > RegularIntervalMaxValues {
				return false
			}
		}
	}
	if len(distinct) < RegularIntervalMinValues {
		return false
	}
	sort.Float64s(distinct)
	gaps := make([]float64, len(distinct)-1)
	for i := range gaps {
		gaps[i] = distinct[i+1] - distinct[i]
	}
	mean, std := stat.MeanStdDev(gaps, nil)
	return mean > 0 && std/mean <= RegularIntervalVariation
}

// histogramShape returns (clustered, uniform) from the spread of bin counts.
func histogramShape(values []float64, min, r float64) (bool, bool) {
	if r <= 0 || len(values) < HistogramBins {
		return false, false
	}
	counts := make([]float64, HistogramBins)
	for _, v := range values {
		b := int((v - min) / r * HistogramBins)
		if b < 0 || b >= HistogramBins {
			b = HistogramBins - 1
		}
		counts[b]++
	}
	mean, std := stat.MeanStdDev(counts, nil)
	if mean == 0 {
		return false, false
	}
	cv := std / mean
	return cv > ClusteredVariation, cv < UniformVariation
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// ClassifyUVs picks the repair of a UV channel. Rules are tried in order and the first match wins.
func ClassifyUVs(in UVInput) UVDecision {
	s := ComputeUVStats(in.UVs)
	d := UVDecision{Action: UVKeep, Stats: s}
	if len(in.UVs) == 0 {
		d.Rule = "empty"
		return d
	}
	if s.InAtlas() {
		d.Rule = "atlas"
		return d
	}
	if sig := matchAssetSignature(in, &s); sig != nil {
		d.Action, d.Rule = UVWrap, "signature:"+sig.Name
		d.Bracket, d.Value = "signature", sig.Divisor
		return d
	}

	name := strings.ToLower(in.Name)
	materials := strings.ToLower(strings.Join(in.Materials, " "))
	tilingEvidence := s.IntegerRatio >= IntegerAlignedRatio || s.RegularIntervals
	rule := ""
	switch {
	case containsAny(name, terrainKeywords) || containsAny(materials, terrainKeywords):
		rule = "terrain-name"
	case in.MultiTexture || strings.Contains(materials, MaterialKeyDelimiter) || containsAny(materials, overlayKeywords):
		rule = "multi-texture"
	case (containsAny(name, proceduralKeywords) || containsAny(materials, proceduralKeywords)) && tilingEvidence:
		rule = "procedural"
	}
	if rule != "" {
		b := bracketFor(WrapBrackets, s.Range)
		d.Action, d.Rule, d.Bracket, d.Value = UVWrap, rule, b.Name, b.Value
		return d
	}

	minimum := math32.Min(s.MinU, s.MinV)
	if minimum < 0 && minimum >= NegativeOffsetMin && s.Clustered && s.Range < NegativeOffsetMaxRange {
		b := bracketFor(NormalizeBrackets, s.Range)
		d.Action, d.Rule, d.Bracket, d.Value = UVNormalize, "negative-offset", b.Name, b.Value
		return d
	}
	if !tilingEvidence && s.Range <= NormalizeMaxRange {
		b := bracketFor(NormalizeBrackets, s.Range)
		d.Action, d.Rule, d.Bracket, d.Value = UVNormalize, "no-tiling", b.Name, b.Value
		return d
	}
	d.Rule = "tiling"
	return d
}

// Wrap maps u into [0,1) as frac(u / divisor). NaN maps to 0.
func Wrap(u, divisor float32) float32 {
	if divisor <= 0 {
		divisor = 1
	}
	w := u / divisor
	w -= math32.Floor(w)
	if math32.IsNaN(w) || w >= 1 || w < 0 {
		return 0
	}
	return w
}

// RepairUVs applies a decision in place. Wrap maps both axes into [0,1);
// normalize only rescales axes outside the atlas range.
func RepairUVs(uvs []geom.Vector2, d UVDecision) {
	if d.Action == UVKeep || len(uvs) == 0 {
		return
	}
	s := d.Stats
	fixU := s.MinU < AtlasMin || s.MaxU > AtlasMax
	fixV := s.MinV < AtlasMin || s.MaxV > AtlasMax
	normalize := func(x, min, r float32) float32 {
		if r <= 0 {
			return 0
		}
		return (x - min) / (r / d.Value)
	}
	for i := range uvs {
		uv := &uvs[i]
		switch d.Action {
		case UVWrap:
			uv.X = Wrap(uv.X, d.Value)
			uv.Y = Wrap(uv.Y, d.Value)
		case UVNormalize:
			if fixU {
				uv.X = normalize(uv.X, s.MinU, s.RangeU)
			}
			if fixV {
				uv.Y = normalize(uv.Y, s.MinV, s.RangeV)
			}
		}
	}
}
