package recommend

import (
	"github.com/i474232898/crop-recommendation/internal/weather"
)

// MaxCandidates bounds the ranked list: the primary crop plus two regional alternates.
const MaxCandidates = 3

// Request is the input of a recommendation.
type Request struct {
	City  string `json:"city" validate:"required"`
	Month int    `json:"month" validate:"min=1,max=12"`
}

// Notice codes.
const (
	NoticeRegionSubstituted = "region_substituted"
	NoticeProviderDegraded  = "provider_degraded"
	NoticeScoringDegraded   = "scoring_degraded"
)

// Notice reports a silent substitution made while serving the request.
type Notice struct {
	Code    string `json:"code"`
	Crop    string `json:"crop,omitempty"`
	Message string `json:"message"`
}

type RegionDetails struct {
	Name         string   `json:"name"`
	TypicalCrops []string `json:"typicalCrops"`
	Climate      string   `json:"climate"`
}

// CropRecommendation is one scored candidate.
type CropRecommendation struct {
	Name             string  `json:"name"`
	Score            int     `json:"score"`
	MarketPrice      float64 `json:"marketPrice"`
	MarketTrend      float64 `json:"marketTrend"`
	DemandTrend      float64 `json:"demandTrend"`
	MarketTrendLabel string  `json:"marketTrendLabel"`
	DemandTrendLabel string  `json:"demandTrendLabel"`
	Degraded         bool    `json:"degraded"`
}

// Recommendation is the ranked result. AllCrops is sorted by score, highest first.
type Recommendation struct {
	RequestID         string               `json:"requestId"`
	City              string               `json:"city"`
	Month             int                  `json:"month"`
	Region            string               `json:"region"`
	RegionSubstituted bool                 `json:"regionSubstituted"`
	RegionDetails     RegionDetails        `json:"regionDetails"`
	WeatherData       weather.Snapshot     `json:"weatherData"`
	DemandTrend       float64              `json:"demand_trend"`
	PrimaryCrop       string               `json:"primaryCrop"`
	AllCrops          []CropRecommendation `json:"allCrops"`
	Notices           []Notice             `json:"notices"`
}
