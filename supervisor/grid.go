package supervisor

// Polygon is an XY polygon in world meters.
type Polygon [][2]float64

// Grid tracks which floor cells the robot has cleaned, and which room each
// cell belongs to. World coordinates are centered on the ground: +x right,
// +y up, so cell row 0 is the top edge.
type Grid struct {
	cellsX, cellsY   int
	groundX, groundY float64

	cleanedGrid [][]bool
	cleaned     int

	room        [][]int // -1 when the cell is in no room
	roomTotal   []int
	roomCleaned []int
}

// NewGrid ...
func NewGrid(cellsX, cellsY int, groundX, groundY float64, rooms []Polygon) *Grid {
	g := &Grid{
		cellsX:  cellsX,
		cellsY:  cellsY,
		groundX: groundX,
		groundY: groundY,
	}
	g.cleanedGrid = makeBoolGrid(cellsX, cellsY)
	if len(rooms) > 0 {
		g.room = make([][]int, cellsY)
		g.roomTotal = make([]int, len(rooms))
		g.roomCleaned = make([]int, len(rooms))
		for iy := 0; iy < cellsY; iy++ {
			g.room[iy] = make([]int, cellsX)
			for ix := 0; ix < cellsX; ix++ {
				g.room[iy][ix] = -1
				wx, wy := g.CellCenterToWorld(ix, iy)
				for r, poly := range rooms {
					if pointInPolygon(wx, wy, poly) {
						g.room[iy][ix] = r
						g.roomTotal[r]++
						break
					}
				}
			}
		}
	}
	return g
}

// Reset clears the cleaned state; room membership is layout, it stays.
func (g *Grid) Reset() {
	g.cleanedGrid = makeBoolGrid(g.cellsX, g.cellsY)
	g.cleaned = 0
	for r := range g.roomCleaned {
		g.roomCleaned[r] = 0
	}
}

// WorldToCell ...
func (g *Grid) WorldToCell(wx, wy float64) (int, int) {
	ix := int(float64(g.cellsX) * (wx + g.groundX/2) / g.groundX)
	iy := int(float64(g.cellsY) * (g.groundY/2 - wy) / g.groundY)
	return ix, iy
}

// CellCenterToWorld ...
func (g *Grid) CellCenterToWorld(ix, iy int) (float64, float64) {
	wx := (float64(ix)+0.5)/float64(g.cellsX)*g.groundX - g.groundX/2
	wy := g.groundY/2 - (float64(iy)+0.5)/float64(g.cellsY)*g.groundY
	return wx, wy
}

// Clean stamps a circle of cell radius around the world position and
// returns how many cells were newly cleaned.
func (g *Grid) Clean(wx, wy float64, radius int) int {
	ix, iy := g.WorldToCell(wx, wy)
	newly := 0
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			cx, cy := ix+dx, iy+dy
			if cx < 0 || cx >= g.cellsX || cy < 0 || cy >= g.cellsY {
				continue
			}
			if g.cleanedGrid[cy][cx] {
				continue
			}
			g.cleanedGrid[cy][cx] = true
			g.cleaned++
			newly++
			if g.room != nil {
				if r := g.room[cy][cx]; r >= 0 {
					g.roomCleaned[r]++
				}
			}
		}
	}
	return newly
}

// CleanedRatio ...
func (g *Grid) CleanedRatio() float64 {
	total := g.cellsX * g.cellsY
	if total == 0 {
		return 0
	}
	return float64(g.cleaned) / float64(total)
}

// RoomAt returns the room index at the world position, -1 when outside
// every room or when no rooms are configured.
func (g *Grid) RoomAt(wx, wy float64) int {
	if g.room == nil {
		return -1
	}
	ix, iy := g.WorldToCell(wx, wy)
	if ix < 0 || ix >= g.cellsX || iy < 0 || iy >= g.cellsY {
		return -1
	}
	return g.room[iy][ix]
}

// RoomPercents returns the cleaned percentage per room index.
func (g *Grid) RoomPercents() map[int]float64 {
	if g.roomTotal == nil {
		return nil
	}
	pcts := make(map[int]float64, len(g.roomTotal))
	for r, total := range g.roomTotal {
		if total > 0 {
			pcts[r] = 100 * float64(g.roomCleaned[r]) / float64(total)
		} else {
			pcts[r] = 0
		}
	}
	return pcts
}

// Rooms reports whether room tracking is configured.
func (g *Grid) Rooms() bool {
	return g.room != nil
}

// pointInPolygon is the even-odd ray casting test.
func pointInPolygon(px, py float64, polygon Polygon) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := polygon[i][0], polygon[i][1]
		xj, yj := polygon[j][0], polygon[j][1]
		if (yi > py) != (yj > py) && px < (xj-xi)*(py-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

func makeBoolGrid(cellsX, cellsY int) [][]bool {
	grid := make([][]bool, cellsY)
	for iy := range grid {
		grid[iy] = make([]bool, cellsX)
	}
	return grid
}
