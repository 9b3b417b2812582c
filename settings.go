package alohareader

import (
	"time"
)

// Output setting names.
const (
	SettingDedicatedDeliveryThread = "DedicatedDeliveryThread"
	SettingEarlyDataDelivery       = "EarlyDataDelivery"
	SettingDeliverOnReceive        = "DeliverOnReceive"
	SettingEnableDiscreteOutput    = "EnableDiscreteOutput"
	SettingSpeakerConfig           = "SpeakerConfig"
	SettingDynamicRangeControl     = "DynamicRangeControl"
	SettingAllowInterlacedOutput   = "AllowInterlacedOutput"
	SettingSoftwareScaling         = "SoftwareScaling"
	SettingVideoSampleDurations    = "VideoSampleDurations"

	SettingJustInTimeDecode   = "JustInTimeDecode"
	SettingSingleOutputBuffer = "SingleOutputBuffer"
	SettingStreamLanguage     = "StreamLanguage"
)

type output struct {
	index int
	typ   MediaType

	receiveStream bool

	dedicated            bool
	earlyDelivery        uint32 // milliseconds
	deliverOnReceive     bool
	discreteOutput       bool
	speakerConfig        uint32
	dynamicRangeControl  uint32
	interlacedOutput     bool
	softwareScaling      bool
	videoSampleDurations bool

	worker *worker
}

func newOutput(index int, t MediaType) *output {
	return &output{
		index:                index,
		typ:                  t,
		dynamicRangeControl:  0xffffffff,
		videoSampleDurations: true,
	}
}

func (out *output) early() time.Duration {
	return time.Duration(out.earlyDelivery) * time.Millisecond
}

// A setting binds a name to a field of output, for one kind of media or any.
type setting struct {
	major  MajorType // MajorUnknown for any
	flag   func(out *output) *bool
	number func(out *output) *uint32
}

var settings = map[string]setting{
	SettingDedicatedDeliveryThread: {flag: func(out *output) *bool { return &out.dedicated }},
	SettingEarlyDataDelivery:       {number: func(out *output) *uint32 { return &out.earlyDelivery }},
	SettingDeliverOnReceive:        {flag: func(out *output) *bool { return &out.deliverOnReceive }},
	SettingEnableDiscreteOutput:    {major: MajorAudio, flag: func(out *output) *bool { return &out.discreteOutput }},
	SettingSpeakerConfig:           {major: MajorAudio, number: func(out *output) *uint32 { return &out.speakerConfig }},
	SettingDynamicRangeControl:     {major: MajorAudio, number: func(out *output) *uint32 { return &out.dynamicRangeControl }},
	SettingAllowInterlacedOutput:   {major: MajorVideo, flag: func(out *output) *bool { return &out.interlacedOutput }},
	SettingSoftwareScaling:         {major: MajorVideo, flag: func(out *output) *bool { return &out.softwareScaling }},
	SettingVideoSampleDurations:    {major: MajorVideo, flag: func(out *output) *bool { return &out.videoSampleDurations }},
}

func unsupportedSetting(name string) bool {
	switch name {
	case SettingJustInTimeDecode, SettingSingleOutputBuffer, SettingStreamLanguage:
		return true
	}
	return false
}

// lookupSetting finds a setting valid for the output. Called with r.mu held.
func (r *Reader) lookupSetting(index int, name string) (*output, setting, error) {
	if index < 0 || index >= len(r.outputs) {
		return nil, setting{}, ErrInvalidArgument
	}
	if unsupportedSetting(name) {
		log.Warn("Setting %s is not supported", name)
		return nil, setting{}, ErrInvalidRequest
	}
	s, ok := settings[name]
	if !ok {
		log.Warn("Unknown setting %s", name)
		return nil, setting{}, ErrInvalidArgument
	}
	out := r.outputs[index]
	if s.major != MajorUnknown && s.major != out.typ.Major {
		log.Warn("Setting %s does not apply to %v output %d", name, out.typ.Major, index)
		return nil, setting{}, ErrInvalidArgument
	}
	return out, s, nil
}

// SetOutputSetting changes a named output setting. Boolean settings take a
// bool, the others a uint32.
func (r *Reader) SetOutputSetting(index int, name string, value interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, s, err := r.lookupSetting(index, name)
	if err != nil {
		return err
	}

	switch v := value.(type) {
	case bool:
		if s.flag == nil {
			return ErrInvalidArgument
		}
		*s.flag(out) = v
	case uint32:
		if s.number == nil {
			return ErrInvalidArgument
		}
		*s.number(out) = v
	default:
		return ErrInvalidArgument
	}
	log.Debug("Output %d: %s = %v", index, name, value)

	// Wake the scheduler, which may be waiting on a gate this changes.
	r.cond.Broadcast()
	return nil
}

// OutputSetting returns a named output setting, as a bool or a uint32.
func (r *Reader) OutputSetting(index int, name string) (interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, s, err := r.lookupSetting(index, name)
	if err != nil {
		return nil, err
	}
	if s.flag != nil {
		return *s.flag(out), nil
	}
	return *s.number(out), nil
}
