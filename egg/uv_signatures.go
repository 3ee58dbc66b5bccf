package egg

// Asset-specific UV signatures.
//
// These match individual assets of the shipped game content by vertex count, UV range and
// share of negative coordinates. They are data for those assets only and do not describe
// the EGG format. Entries are checked before the generic heuristics.

type uvSignature struct {
	Name                     string
	MinVertices, MaxVertices int
	MinRange, MaxRange       float32
	MinNegative, MaxNegative float32
	Divisor                  float32
}

var assetSignatures = []uvSignature{
	// large terrain sheets with world-space UVs centered on the origin
	{Name: "terrain-sheet", MinVertices: 2000, MaxVertices: 60000, MinRange: 40, MaxRange: 400, MinNegative: 0.35, MaxNegative: 0.65, Divisor: 10},
	// repeated trim strips on building props
	{Name: "prop-strip", MinVertices: 24, MaxVertices: 600, MinRange: 3, MaxRange: 12, MinNegative: 0.08, MaxNegative: 0.3, Divisor: 1},
}

func matchAssetSignature(in UVInput, s *UVStats) *uvSignature {
	n := in.VertexCount
	if n == 0 {
		n = len(in.UVs)
	}
	for i := range assetSignatures {
		sig := &assetSignatures[i]
		if n >= sig.MinVertices && n <= sig.MaxVertices &&
			s.Range >= sig.MinRange && s.Range <= sig.MaxRange &&
			s.NegativeRatio >= sig.MinNegative && s.NegativeRatio <= sig.MaxNegative {
			return sig
		}
	}
	return nil
}
