package listener

import "context"

// scriptedImpl replays a fixed frame sequence. It backs tests and the dry-run
// mode where no audio hardware is present.
type scriptedImpl struct {
	script [][]int16
	frames chan []int16
}

func NewScripted(script [][]int16) Capturer {
	return &scriptedImpl{
		script: script,
		frames: make(chan []int16),
	}
}

func (s *scriptedImpl) Start(ctx context.Context) error {
	go func() {
		defer close(s.frames)

		for _, frame := range s.script {
			select {
			case s.frames <- frame:
			case <-ctx.Done():
				return
			}
		}

		<-ctx.Done()
	}()

	return nil
}

func (s *scriptedImpl) Frames() <-chan []int16 {
	return s.frames
}

func (s *scriptedImpl) Stop() error {
	return nil
}
