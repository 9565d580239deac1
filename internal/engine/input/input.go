// Package input turns SDL2 events into viewer controls.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Command is a discrete viewer action bound to a key.
type Command int

const (
	CommandNone Command = iota
	CommandCycleLightCamera
	CommandToggleForm
	CommandMoreSplits
	CommandFewerSplits
	CommandRaiseLambda
	CommandLowerLambda
	CommandToggleSun
	CommandToggleDebug
	CommandDumpState
)

var keyCommands = map[sdl.Scancode]Command{
	sdl.SCANCODE_C:        CommandCycleLightCamera,
	sdl.SCANCODE_V:        CommandToggleForm,
	sdl.SCANCODE_EQUALS:   CommandMoreSplits,
	sdl.SCANCODE_MINUS:    CommandFewerSplits,
	sdl.SCANCODE_PAGEUP:   CommandRaiseLambda,
	sdl.SCANCODE_PAGEDOWN: CommandLowerLambda,
	sdl.SCANCODE_SPACE:    CommandToggleSun,
	sdl.SCANCODE_F3:       CommandToggleDebug,
	sdl.SCANCODE_P:        CommandDumpState,
}

// Frame holds everything that happened since the previous Update.
type Frame struct {
	Quit          bool
	Resized       bool
	Width, Height int

	// Mouse drag with the left button held, in pixels
	DragX, DragY float32
	// Wheel steps, positive away from the user
	Zoom float32
	// Held movement keys, each in [-1, 1]
	Forward, Right, Up float32

	Commands []Command
}

// Input handles all input processing.
type Input struct {
	frame    Frame
	dragging bool
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		frame: Frame{Commands: make([]Command, 0, 4)},
	}
}

// Update polls SDL events and returns the collected frame.
// The returned value is reused by the next call.
func (i *Input) Update() *Frame {
	cmds := i.frame.Commands[:0]
	i.frame = Frame{Commands: cmds}

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.frame.Quit = true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.frame.Resized = true
				i.frame.Width = int(e.Data1)
				i.frame.Height = int(e.Data2)
			}

		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
				continue
			}
			if e.Keysym.Scancode == sdl.SCANCODE_ESCAPE {
				i.frame.Quit = true
				continue
			}
			if cmd, ok := keyCommands[e.Keysym.Scancode]; ok {
				i.frame.Commands = append(i.frame.Commands, cmd)
			}

		case *sdl.MouseMotionEvent:
			if i.dragging {
				i.frame.DragX += float32(e.XRel)
				i.frame.DragY += float32(e.YRel)
			}

		case *sdl.MouseButtonEvent:
			if e.Button == sdl.BUTTON_LEFT {
				i.dragging = e.Type == sdl.MOUSEBUTTONDOWN
			}

		case *sdl.MouseWheelEvent:
			i.frame.Zoom += float32(e.Y)
		}
	}

	keys := sdl.GetKeyboardState()
	i.frame.Forward = axis(keys, sdl.SCANCODE_W, sdl.SCANCODE_S)
	i.frame.Right = axis(keys, sdl.SCANCODE_D, sdl.SCANCODE_A)
	i.frame.Up = axis(keys, sdl.SCANCODE_E, sdl.SCANCODE_Q)

	return &i.frame
}

func axis(keys []uint8, pos, neg sdl.Scancode) float32 {
	var v float32
	if keys[pos] != 0 {
		v++
	}
	if keys[neg] != 0 {
		v--
	}
	return v
}
