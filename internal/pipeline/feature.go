package pipeline

import (
	"fmt"
	"strings"
)

// Feature is a toggleable pipeline stage.
type Feature string

const (
	FeatureAim     Feature = "aim"
	FeatureBalance Feature = "balance"
	FeatureStack   Feature = "stack"
	FeatureWiggle  Feature = "wiggle"
	FeatureHazard  Feature = "hazard"
	FeatureFollow  Feature = "follow"
	FeatureBridge  Feature = "bridge"
)

// AllFeatures lists every feature in HUD order.
var AllFeatures = []Feature{
	FeatureAim,
	FeatureBalance,
	FeatureStack,
	FeatureWiggle,
	FeatureHazard,
	FeatureFollow,
	FeatureBridge,
}

// ParseFeature accepts a feature name in any case.
func ParseFeature(s string) (Feature, error) {
	f := Feature(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllFeatures {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown feature %q", s)
}
