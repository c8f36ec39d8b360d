package ir

import (
	"math"
	"math/bits"
	"net"
)

// ipAddressesReserved mirrors the original allocator: on both ends of every
// subnet, this many addresses are left unused (network/broadcast-style
// headroom), the same way the teacher reserves address space around a
// cloud subnet.
const ipAddressesReserved = 8

// log2Ceil returns ceil(log2(x)) for x > 0, computed via bits.Len the way
// the original implementation derives it from leading-zero count.
func log2Ceil(x int) int {
	if x <= 0 {
		panic("taas: ir: log2Ceil requires a positive argument")
	}
	if x == 1 {
		return 0
	}
	return bits.Len(uint(x - 1))
}

// Log2Ceil is the exported form, used by the pipeline driver to compute its
// pacing sleep (§4.9).
func Log2Ceil(x int) int { return log2Ceil(x) }

// generateRightBitmask returns a mask with the low `bits` bits set to 1.
func generateRightBitmask(n uint) uint32 {
	if n >= 32 {
		return math.MaxUint32
	}
	return (uint32(1) << n) - 1
}

// incrementAtBitIndex adds 1 at the given bit position, the bit-packing
// trick used to "round up" an address to the next free block boundary.
func incrementAtBitIndex(addr uint32, idx uint) uint32 {
	return addr + (uint32(1) << idx)
}

// Ipv4Counter is a cursor over the IPv4 address space that knows how to
// "make room" for a block of N addresses by rounding itself up to the next
// address whose trailing zero count can hold the block, then walking
// forward one address at a time.
type Ipv4Counter struct {
	curr uint32
}

func NewIpv4Counter(a, b, c, d byte) Ipv4Counter {
	return Ipv4Counter{curr: uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)}
}

func (c Ipv4Counter) ToIP() net.IP {
	return net.IPv4(byte(c.curr>>24), byte(c.curr>>16), byte(c.curr>>8), byte(c.curr))
}

func (c Ipv4Counter) Add(n uint32) Ipv4Counter {
	return Ipv4Counter{curr: c.curr + n}
}

// MakeRoomFor rounds the counter up, if needed, so that numAddr consecutive
// addresses starting there all fall within one naturally-aligned block:
// it masks off the low ceil(log2(numAddr)) bits and increments the bit
// just above them.
func (c Ipv4Counter) MakeRoomFor(numAddr uint32) Ipv4Counter {
	logBits := uint(log2Ceil(int(numAddr)))
	if uint(bits.TrailingZeros32(c.curr)) < logBits {
		mask := ^generateRightBitmask(logBits)
		masked := c.curr & mask
		return Ipv4Counter{curr: incrementAtBitIndex(masked, logBits+1)}
	}
	return c
}

// Subnet is a clique of VMs assigned a concrete CIDR block and, for each
// member VM index, the IPv4 address it was given within that block.
type Subnet struct {
	Prefix       CidrIP
	ConnectedVMs map[int]net.IP
}

// AssignSubnetsAndIP walks the candidate cliques in order and carves out a
// correctly-sized, naturally-aligned IPv4 block for each from the 10.1.0.0/16
// space, leaving ipAddressesReserved addresses of headroom on both ends of
// every block — this is what lets later pipeline stages treat "the first
// and last few addresses of a subnet" as safely unused.
func AssignSubnetsAndIP(candidates []SubnetCandidate) []Subnet {
	subnets := make([]Subnet, 0, len(candidates))
	counter := NewIpv4Counter(10, 1, 0, 0)

	for _, cand := range candidates {
		size := uint32(len(cand.ConnectedVMs)) + ipAddressesReserved*2
		counter = counter.MakeRoomFor(size)
		origin := counter.ToIP()
		counter = counter.Add(ipAddressesReserved)

		connected := make(map[int]net.IP, len(cand.ConnectedVMs))
		for _, vm := range sortedVMIndices(cand) {
			connected[vm] = counter.ToIP()
			counter = counter.Add(1)
		}
		counter = counter.Add(ipAddressesReserved)

		netmask := 32 - log2Ceil(int(size))
		subnets = append(subnets, Subnet{
			Prefix:       CidrIP{IP: origin, Netmask: netmask},
			ConnectedVMs: connected,
		})
	}
	return subnets
}
