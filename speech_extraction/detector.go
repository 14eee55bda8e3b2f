package speech_extraction

import (
	"time"

	"github.com/go-audio/audio"

	"voice-drive/ring_buffer"
	"voice-drive/speech_extraction/voice_detection"
)

const (
	DefaultSampleRate = 16000
	DefaultFrameSize  = 1024
	DefaultQuietTime  = time.Millisecond * 200
	DefaultPreRoll    = time.Millisecond * 500

	// speech has to be this many times louder than the calibrated ambient
	defaultRatio = 1.75
	// threshold used before calibration and for very quiet rooms
	defaultFloor = 1.0
)

type DetectorConfig struct {
	SampleRate    int
	FrameSize     int
	QuietTime     time.Duration
	MaxUtterance  time.Duration
	ListenTimeout time.Duration
	PreRoll       time.Duration
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}

	if c.FrameSize == 0 {
		c.FrameSize = DefaultFrameSize
	}

	if c.QuietTime == 0 {
		c.QuietTime = DefaultQuietTime
	}

	if c.PreRoll == 0 {
		c.PreRoll = DefaultPreRoll
	}

	return c
}

// Detector cuts a stream of frames into utterances. Time is measured in
// samples fed, not wall clock.
type Detector struct {
	cfg       DetectorConfig
	vad       *voice_detection.VAD
	preRoll   *ring_buffer.Buffer
	threshold float64

	heardSomething bool
	waited         time.Duration
	speaking       time.Duration
	quiet          time.Duration
	samples        []int

	ambientSum    float64
	ambientFrames int
}

func NewDetector(cfg DetectorConfig) *Detector {
	cfg = cfg.withDefaults()

	return &Detector{
		cfg:       cfg,
		vad:       voice_detection.New(cfg.FrameSize, cfg.SampleRate),
		preRoll:   ring_buffer.New(int(cfg.PreRoll.Seconds() * float64(cfg.SampleRate))),
		threshold: defaultFloor,
	}
}

func (d *Detector) frameDuration(frame []int16) time.Duration {
	return time.Duration(len(frame)) * time.Second / time.Duration(d.cfg.SampleRate)
}

// CalibrateFrame adds frame to the ambient noise estimate.
func (d *Detector) CalibrateFrame(frame []int16) time.Duration {
	d.ambientSum += d.vad.Energy(frame)
	d.ambientFrames++

	return d.frameDuration(frame)
}

// FinishCalibration sets the speech threshold from the frames given to
// CalibrateFrame and returns it.
func (d *Detector) FinishCalibration() float64 {
	if d.ambientFrames > 0 {
		ambient := d.ambientSum / float64(d.ambientFrames)

		d.threshold = ambient * defaultRatio
		if d.threshold < defaultFloor {
			d.threshold = defaultFloor
		}
	}

	d.ambientSum = 0
	d.ambientFrames = 0

	return d.threshold
}

func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Feed consumes one frame and reports whether the current utterance is
// complete. It returns ErrListenTimeout when no speech started in time.
func (d *Detector) Feed(frame []int16) (bool, error) {
	duration := d.frameDuration(frame)
	loud := d.vad.Energy(frame) >= d.threshold

	if !d.heardSomething {
		if !loud {
			// keep a buffer of the first bit of audio before detection
			d.preRoll.Add(frame)

			d.waited += duration
			if d.cfg.ListenTimeout > 0 && d.waited >= d.cfg.ListenTimeout {
				return false, ErrListenTimeout
			}

			return false, nil
		}

		d.heardSomething = true
		d.appendSamples(d.preRoll.Read())
	}

	d.appendSamples(frame)
	d.speaking += duration

	if loud {
		d.quiet = 0
	} else {
		d.quiet += duration
		if d.quiet >= d.cfg.QuietTime {
			return true, nil
		}
	}

	if d.cfg.MaxUtterance > 0 && d.speaking >= d.cfg.MaxUtterance {
		return true, nil
	}

	return false, nil
}

func (d *Detector) appendSamples(frame []int16) {
	for _, sample := range frame {
		d.samples = append(d.samples, int(sample))
	}
}

// Utterance returns the audio collected since the last Reset.
func (d *Detector) Utterance() *audio.IntBuffer {
	data := make([]int, len(d.samples))
	copy(data, d.samples)

	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  d.cfg.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
}

// Reset prepares for the next utterance. The calibrated threshold is kept.
func (d *Detector) Reset() {
	d.heardSomething = false
	d.waited = 0
	d.speaking = 0
	d.quiet = 0
	d.samples = d.samples[:0]
	d.preRoll.Reset()
}
