package keygen

// Mersenne Twister (MT19937) with the init_by_array seeding and 53-bit float
// output used by the codes already stored in existing datasets. Every shuffle
// builds its own generator, so no state is shared between goroutines.

const (
	mtN         = 624
	mtM         = 397
	matrixA     = 0x9908b0df
	upperMask   = 0x80000000
	lowerMask   = 0x7fffffff
	initialSeed = 19650218
)

type mersenne struct {
	state [mtN]uint32
	index int
}

func newMersenne(key []uint32) *mersenne {
	m := &mersenne{}
	m.seed(initialSeed)

	i, j := 1, 0

	k := max(mtN, len(key))
	for ; k > 0; k-- {
		prev := m.state[i-1] ^ (m.state[i-1] >> 30)
		m.state[i] = (m.state[i] ^ (prev * 1664525)) + key[j] + uint32(j)
		i++
		j++

		if i >= mtN {
			m.state[0] = m.state[mtN-1]
			i = 1
		}

		if j >= len(key) {
			j = 0
		}
	}

	for k = mtN - 1; k > 0; k-- {
		prev := m.state[i-1] ^ (m.state[i-1] >> 30)
		m.state[i] = (m.state[i] ^ (prev * 1566083941)) - uint32(i)
		i++

		if i >= mtN {
			m.state[0] = m.state[mtN-1]
			i = 1
		}
	}

	m.state[0] = upperMask

	return m
}

func (m *mersenne) seed(s uint32) {
	m.state[0] = s
	for i := 1; i < mtN; i++ {
		m.state[i] = 1812433253*(m.state[i-1]^(m.state[i-1]>>30)) + uint32(i)
	}

	m.index = mtN
}

func (m *mersenne) twist() {
	for i := 0; i < mtN; i++ {
		y := (m.state[i] & upperMask) | (m.state[(i+1)%mtN] & lowerMask)

		next := m.state[(i+mtM)%mtN] ^ (y >> 1)
		if y&1 != 0 {
			next ^= matrixA
		}

		m.state[i] = next
	}

	m.index = 0
}

func (m *mersenne) uint32() uint32 {
	if m.index >= mtN {
		m.twist()
	}

	y := m.state[m.index]
	m.index++

	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18

	return y
}

// float64 returns a value in [0, 1) built from 53 random bits.
func (m *mersenne) float64() float64 {
	a := m.uint32() >> 5
	b := m.uint32() >> 6

	return (float64(a)*67108864.0 + float64(b)) * (1.0 / 9007199254740992.0)
}
