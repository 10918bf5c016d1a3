package emu

// Timer control register (bank 0 0x04) bits
const (
	timerIRQReset = 0x80
	timerMaskT1   = 0x40
	timerMaskT2   = 0x20
	timerStartT2  = 0x02
	timerStartT1  = 0x01
)

// Status register bits
const (
	statusIRQ = 0x80
	statusFT1 = 0x40
	statusFT2 = 0x20
)

// Native samples per timer tick: 80us for Timer 1, 320us for Timer 2.
const (
	timer1Divider = 4
	timer2Divider = 16
)

// opl3Timer is one of the two 8-bit up-counting timers.
type opl3Timer struct {
	preset  uint8 // Loaded from 0x02 / 0x03
	counter int   // Current count, overflows at 256
	running bool
	masked  bool // Overflow does not raise the flag
	flag    bool
}

func (t *opl3Timer) start(run bool) {
	if run && !t.running {
		t.counter = int(t.preset)
	}
	t.running = run
}

// tick advances the timer one step. Overflow reloads the preset.
func (t *opl3Timer) tick() {
	if !t.running {
		return
	}
	t.counter++
	if t.counter >= 256 {
		t.counter = int(t.preset)
		if !t.masked {
			t.flag = true
		}
	}
}

// writeTimerControl handles bank 0 register 0x04. The IRQ reset bit clears
// both flags and ignores the rest of the byte.
func (c *OPL3) writeTimerControl(val uint8) {
	if val&timerIRQReset != 0 {
		c.timer1.flag = false
		c.timer2.flag = false
		return
	}
	c.timer1.masked = val&timerMaskT1 != 0
	c.timer2.masked = val&timerMaskT2 != 0
	c.timer1.start(val&timerStartT1 != 0)
	c.timer2.start(val&timerStartT2 != 0)
}

// stepTimers advances both timers by one native sample.
func (c *OPL3) stepTimers() {
	c.timerSub++
	if c.timerSub%timer1Divider == 0 {
		c.timer1.tick()
	}
	if c.timerSub >= timer2Divider {
		c.timerSub = 0
		c.timer2.tick()
	}
}

// ReadStatus returns the status port. The low bits read as zero, which
// identifies an OPL3 to drivers probing for one.
func (c *OPL3) ReadStatus() uint8 {
	var status uint8
	if c.timer1.flag {
		status |= statusFT1
	}
	if c.timer2.flag {
		status |= statusFT2
	}
	if status != 0 {
		status |= statusIRQ
	}
	return status
}
