// Package outline turns vector path descriptions into point lists that the
// shape engine places on screen.
package outline

import (
	"errors"
	"fmt"
	"strconv"

	"seehuhn.de/go/geom/vec"
)

// CubicSteps is the number of samples taken along every cubic segment.
const CubicSteps = 5

var (
	ErrEmptyPath   = errors.New("outline: empty path data")
	ErrNoCommand   = errors.New("outline: path data must start with a command")
	ErrUnsupported = errors.New("outline: unsupported path command")
)

// ParsePath flattens path data into points. Supported commands are
// M, L, H, V, Z and C in absolute and relative form. Cubic curves are
// sampled at CubicSteps fixed parameter steps. Parsing ends at the first
// close command, which repeats the subpath start.
func ParsePath(d string) ([]vec.Vec2, error) {
	toks, err := tokenize(d)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, ErrEmptyPath
	}

	var (
		pts        []vec.Vec2
		cur, start vec.Vec2
		cmd        byte
	)
	add := func(p vec.Vec2) {
		if len(pts) == 0 {
			start = p
		}
		cur = p
		pts = append(pts, p)
	}

	i := 0
	nums := func(n int) ([]float64, error) {
		if i+n > len(toks) {
			return nil, fmt.Errorf("outline: %c needs %d numbers", cmd, n)
		}
		out := make([]float64, n)
		for k := 0; k < n; k++ {
			if toks[i+k].cmd != 0 {
				return nil, fmt.Errorf("outline: %c needs %d numbers", cmd, n)
			}
			out[k] = toks[i+k].num
		}
		i += n
		return out, nil
	}

	for i < len(toks) {
		if c := toks[i].cmd; c != 0 {
			cmd = c
			i++
			if cmd == 'Z' || cmd == 'z' {
				if len(pts) > 0 {
					pts = append(pts, start)
				}
				return pts, nil
			}
			continue
		}
		rel := cmd >= 'a' && cmd <= 'z'
		var base vec.Vec2
		if rel {
			base = cur
		}

		switch cmd {
		case 0:
			return nil, ErrNoCommand
		case 'M', 'm', 'L', 'l':
			v, err := nums(2)
			if err != nil {
				return nil, err
			}
			add(base.Add(vec.Vec2{X: v[0], Y: v[1]}))
			// coordinates following a move are implicit line-tos
			if cmd == 'M' {
				cmd = 'L'
			} else if cmd == 'm' {
				cmd = 'l'
			}
		case 'H', 'h':
			v, err := nums(1)
			if err != nil {
				return nil, err
			}
			add(vec.Vec2{X: base.X + v[0], Y: cur.Y})
		case 'V', 'v':
			v, err := nums(1)
			if err != nil {
				return nil, err
			}
			add(vec.Vec2{X: cur.X, Y: base.Y + v[0]})
		case 'C', 'c':
			v, err := nums(6)
			if err != nil {
				return nil, err
			}
			p0 := cur
			p1 := base.Add(vec.Vec2{X: v[0], Y: v[1]})
			p2 := base.Add(vec.Vec2{X: v[2], Y: v[3]})
			p3 := base.Add(vec.Vec2{X: v[4], Y: v[5]})
			for s := 1; s <= CubicSteps; s++ {
				add(cubicAt(p0, p1, p2, p3, float64(s)/CubicSteps))
			}
		default:
			return nil, fmt.Errorf("%w %q", ErrUnsupported, cmd)
		}
	}
	return pts, nil
}

func cubicAt(p0, p1, p2, p3 vec.Vec2, t float64) vec.Vec2 {
	mt := 1 - t
	return p0.Mul(mt * mt * mt).
		Add(p1.Mul(3 * mt * mt * t)).
		Add(p2.Mul(3 * mt * t * t)).
		Add(p3.Mul(t * t * t))
}

type token struct {
	cmd byte
	num float64
}

func isCommand(c byte) bool {
	switch c {
	case 'M', 'm', 'L', 'l', 'H', 'h', 'V', 'v', 'Z', 'z', 'C', 'c':
		return true
	}
	return false
}

// tokenize splits path data into commands and numbers. A sign or a second
// decimal point starts a new number, so "1-2" and "0.5.5" split the way
// path data expects.
func tokenize(d string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(d) {
		c := d[i]
		switch {
		case c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isCommand(c):
			toks = append(toks, token{cmd: c})
			i++
		case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
			j := i
			if c == '-' || c == '+' {
				j++
			}
			dot, exp := false, false
		scan:
			for j < len(d) {
				switch ch := d[j]; {
				case ch >= '0' && ch <= '9':
				case ch == '.' && !dot && !exp:
					dot = true
				case (ch == 'e' || ch == 'E') && !exp:
					exp = true
					if j+1 < len(d) && (d[j+1] == '-' || d[j+1] == '+') {
						j++
					}
				default:
					break scan
				}
				j++
			}
			f, err := strconv.ParseFloat(d[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("outline: invalid number %q", d[i:j])
			}
			toks = append(toks, token{num: f})
			i = j
		default:
			return nil, fmt.Errorf("%w %q", ErrUnsupported, c)
		}
	}
	return toks, nil
}
