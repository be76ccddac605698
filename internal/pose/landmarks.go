// Package pose provides body joint frames and the sources that supply them.
package pose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/wavecoach/internal/geometry"
	"github.com/ayusman/wavecoach/internal/wave"
)

// ErrMissingJoint is returned when a frame lacks a joint required for analysis.
var ErrMissingJoint = errors.New("missing joint")

// Joint names a tracked body landmark.
type Joint string

// Arm joints used by the wave analyzer, named after the MediaPipe pose model.
const (
	LeftShoulder  Joint = "left_shoulder"
	RightShoulder Joint = "right_shoulder"
	LeftElbow     Joint = "left_elbow"
	RightElbow    Joint = "right_elbow"
	LeftWrist     Joint = "left_wrist"
	RightWrist    Joint = "right_wrist"
	LeftHip       Joint = "left_hip"
	RightHip      Joint = "right_hip"
)

// Pose landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
var landmarkIndex = map[int]Joint{
	11: LeftShoulder,
	12: RightShoulder,
	13: LeftElbow,
	14: RightElbow,
	15: LeftWrist,
	16: RightWrist,
	23: LeftHip,
	24: RightHip,
}

// JointAt returns the joint for a MediaPipe landmark index.
func JointAt(index int) (Joint, bool) {
	j, ok := landmarkIndex[index]
	return j, ok
}

// Side selects which arm is analyzed.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ParseSide converts a config or request value to a Side.
// An empty value selects the right arm.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "right":
		return SideRight, nil
	case "left":
		return SideLeft, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// ArmJoints returns the hip, shoulder, elbow and wrist joint names for a side.
func (s Side) ArmJoints() [4]Joint {
	if s == SideLeft {
		return [4]Joint{LeftHip, LeftShoulder, LeftElbow, LeftWrist}
	}
	return [4]Joint{RightHip, RightShoulder, RightElbow, RightWrist}
}

// Frame is one set of detected joints in normalized [0,1] coordinates,
// together with the pixel size of the image they were detected in.
type Frame struct {
	Timestamp int64                    `json:"timestamp"` // milliseconds
	Width     int                      `json:"width"`
	Height    int                      `json:"height"`
	Joints    map[Joint]geometry.Point `json:"joints"`
}

// Arm extracts the analyzer input for one side of the body.
func (f *Frame) Arm(side Side) (wave.Joints, error) {
	names := side.ArmJoints()
	var points [4]geometry.Point
	for i, name := range names {
		p, ok := f.Joints[name]
		if !ok {
			return wave.Joints{}, fmt.Errorf("%w: %s", ErrMissingJoint, name)
		}
		points[i] = p
	}
	return wave.Joints{
		Hip:      points[0],
		Shoulder: points[1],
		Elbow:    points[2],
		Wrist:    points[3],
	}, nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := *f
	c.Joints = make(map[Joint]geometry.Point, len(f.Joints))
	for k, v := range f.Joints {
		c.Joints[k] = v
	}
	return &c
}
