package classifier_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/domain/classifier"
)

func TestClassify_SystemVocabularyWins(t *testing.T) {
	c := classifier.New(nil)
	qt, confidence := c.Classify("What's my battery SOC right now?")
	require.Equal(t, classifier.System, qt)
	require.Greater(t, confidence, 0.0)
}

func TestClassify_ResearchVocabularyWins(t *testing.T) {
	c := classifier.New(nil)
	qt, _ := c.Classify("What are the latest industry trends and best practices for battery storage?")
	require.Equal(t, classifier.Research, qt)
}

func TestClassify_PlanningVocabularyWins(t *testing.T) {
	c := classifier.New(nil)
	qt, _ := c.Classify("Should we optimize the battery schedule for tonight?")
	require.Equal(t, classifier.Planning, qt)
}

func TestClassify_PlanningBeatsSystemOnTiedHardwareMention(t *testing.T) {
	c := classifier.New(nil)
	qt, _ := c.Classify("Should we run the miners right now?")
	require.Equal(t, classifier.Planning, qt)
}

func TestClassify_UnmatchedTextFallsBackToGeneral(t *testing.T) {
	c := classifier.New(nil)
	qt, confidence := c.Classify("Hello there, how are you today?")
	require.Equal(t, classifier.General, qt)
	require.Equal(t, 0.0, confidence)
}

func TestClassify_EmptyTextIsGeneral(t *testing.T) {
	c := classifier.New(nil)
	qt, confidence := c.Classify("")
	require.Equal(t, classifier.General, qt)
	require.Equal(t, 0.0, confidence)
}

func TestClassify_HigherVocabularyDensityScoresHigherConfidence(t *testing.T) {
	c := classifier.New(nil)
	_, weak := c.Classify("tell me about the battery")
	_, strong := c.Classify("my battery state of charge and battery soc and current status")
	require.Greater(t, strong, weak)
}

func TestClassify_IsCaseInsensitive(t *testing.T) {
	c := classifier.New(nil)
	qt, _ := c.Classify("MY BATTERY SOC")
	require.Equal(t, classifier.System, qt)
}
