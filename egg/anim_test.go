package egg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const walkAnimEgg = `
<Table> {
  <Bundle> walk {
    <Table> "<skeleton>" {
      <Table> root {
        <Xfm$Anim_S$> xform {
          <Scalar> fps { 10 }
          <S$Anim> z { <V> { 0 1 2 3 } }
          <S$Anim> h { <V> { 90 } }
        }
        <Table> child {
          <Xfm$Anim_S$> xform {
            <S$Anim> x { <V> { 5 } }
          }
        }
      }
    }
  }
}`

func TestParseBundle(t *testing.T) {
	scene := importString(t, walkAnimEgg, nil)
	require.Len(t, scene.Clips, 1)
	clip := scene.Clips[0]
	assert.Equal(t, "walk", clip.Name)
	assert.Equal(t, float32(10), clip.FPS)
	assert.Equal(t, 4, clip.Frames)
	assert.True(t, clip.Loop)
	assert.True(t, clip.AutoPlay)
	require.Len(t, clip.Channels, 2)

	// joints of animation-only files come from the tables
	skel := scene.Skeleton
	require.NotNil(t, skel)
	assert.Equal(t, "root", skel.Root.Name)
	assert.Equal(t, skel.Root, skel.Joint("child").Parent)

	root := clip.Channel("root")
	require.NotNil(t, root)
	require.Len(t, root.Translations, 4)
	for i, tr := range root.Translations {
		assert.InDelta(t, 0, tr.X, 1e-5)
		assert.InDelta(t, float32(i), tr.Y, 1e-5)
		assert.InDelta(t, 0, tr.Z, 1e-5)
		assert.InDelta(t, 1, root.Rotations[i].Len(), 1e-5)
		assert.InDelta(t, 1, root.Scales[i].X, 1e-5)
	}
	// a heading of 90 degrees turns around the vertical axis
	assert.InDelta(t, 0, root.Rotations[0].X, 1e-5)
	assert.InDelta(t, 0, root.Rotations[0].Z, 1e-5)
	assert.InDelta(t, 0.7071, abs32(root.Rotations[0].Y), 1e-3)

	child := clip.Channel("child")
	require.NotNil(t, child)
	require.Len(t, child.Translations, 1)
	assert.InDelta(t, 5, child.Translations[0].X, 1e-5)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestClipSample(t *testing.T) {
	scene := importString(t, walkAnimEgg, nil)
	clip := scene.Clips[0]

	pos, rot, scale, ok := clip.Sample("root", 0.2)
	require.True(t, ok)
	assert.InDelta(t, 2, pos.Y, 1e-5)
	assert.InDelta(t, 1, rot.Len(), 1e-5)
	assert.InDelta(t, 1, scale.Y, 1e-5)

	pos, _, _, ok = clip.Sample("root", 0.15)
	require.True(t, ok)
	assert.InDelta(t, 1.5, pos.Y, 1e-4)

	pos, _, _, ok = clip.Sample("child", 0.15)
	require.True(t, ok)
	assert.InDelta(t, 5, pos.X, 1e-5)

	_, _, _, ok = clip.Sample("missing", 0)
	assert.False(t, ok)

	assert.InDelta(t, 0.3, clip.Duration(), 1e-6)
}

func TestClipSampleLoopPeriod(t *testing.T) {
	scene := importString(t, walkAnimEgg, nil)
	clip := scene.Clips[0]
	require.True(t, clip.Loop)

	// just before the end the clip is near the last frame, not blending towards frame 0
	pos, _, _, ok := clip.Sample("root", 0.299)
	require.True(t, ok)
	assert.InDelta(t, 2.99, pos.Y, 1e-3)

	// past the end the clip starts over
	pos, _, _, _ = clip.Sample("root", 0.35)
	assert.InDelta(t, 0.5, pos.Y, 1e-4)

	clip.Loop = false
	pos, _, _, _ = clip.Sample("root", 0.35)
	assert.InDelta(t, 3, pos.Y, 1e-5)
}

func TestXfmAnimInterleaved(t *testing.T) {
	elements, errs := ParseLines(splitLines(`
<Bundle> hop {
  <Table> body {
    <Xfm$Anim> xform {
      <Scalar> fps { 30 }
      <Char*> contents { xz }
      <V> { 1 0 1 2 1 4 }
    }
  }
}`))
	require.Empty(t, errs)
	skel := NewSkeleton()
	clip, err := ParseBundle(elements[0], skel)
	require.NoError(t, err)
	require.NotNil(t, clip)
	assert.Equal(t, float32(30), clip.FPS)
	assert.Equal(t, 3, clip.Frames)

	ch := clip.Channel("body")
	require.NotNil(t, ch)
	assert.InDelta(t, 1, ch.Translations[2].X, 1e-5)
	assert.InDelta(t, 4, ch.Translations[2].Y, 1e-5)
	assert.Equal(t, 1, skel.Len())
}

func TestEmptyBundleDropped(t *testing.T) {
	scene := importString(t, `
<Table> {
  <Bundle> idle {
    <Table> "<skeleton>" {
    }
  }
}`, nil)
	assert.Empty(t, scene.Clips)
	assert.Len(t, scene.Warnings, 1)
}

func TestSkipAnimationOnly(t *testing.T) {
	opts := DefaultOptions()
	opts.SkipAnimationOnly = true
	_, err := Import(splitLines(walkAnimEgg), "walk", opts)
	assert.ErrorIs(t, err, ErrSkipped)

	// files with geometry are still imported
	_, err = Import(splitLines(characterEgg+walkAnimEgg), "character", opts)
	assert.NoError(t, err)
}
