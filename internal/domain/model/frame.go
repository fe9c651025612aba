package model

import "time"

// Box is a detection bounding box in frame pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is what the face model yields per face in a frame.
type Detection struct {
	Box         Box                `json:"box"`
	Descriptor  Descriptor         `json:"descriptor"`
	Expressions map[string]float64 `json:"expressions,omitempty"`
}

// Frame is one tick's worth of detections. Only the first detection is used.
type Frame struct {
	ID         string
	Detections []Detection
	ReceivedAt time.Time
}

// Result is the ephemeral outcome of one recognition decision. It is consumed
// by at most one feedback submission and superseded by the next detection.
type Result struct {
	ID         string     `json:"id"`
	Predicted  string     `json:"predicted"`
	Confidence float64    `json:"confidence"`
	Distance   float64    `json:"-"`
	Threshold  float64    `json:"threshold"`
	Expression string     `json:"expression,omitempty"`
	Box        Box        `json:"box"`
	Timestamp  time.Time  `json:"timestamp"`
	Descriptor Descriptor `json:"-"`
}

// Known reports whether the result names an enrolled person.
func (r Result) Known() bool { return r.Predicted != "" && r.Predicted != Unknown }
