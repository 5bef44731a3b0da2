// File: render_molecule.go
package main

import (
	"bytes"
	"fmt"
	"image/png"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"tristereo/internal/config"
	"tristereo/molecule"
	"tristereo/stereo"
)

var (
	fontOnce sync.Once
	fontTTF  *truetype.Font
	fontErr  error
)

// loadFace 使用内置 Go Regular 字体，不依赖工作目录里的 ttf 文件
func loadFace(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		fontTTF, fontErr = truetype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}
	return truetype.NewFace(fontTTF, &truetype.Options{Size: size}), nil
}

// Point 用于裁剪线段端点
type Point struct{ X, Y float64 }

// MoleculeRenderConfig holds the transform of one molecule into its grid cell
type MoleculeRenderConfig struct {
	OriginX, OriginY float64 // top-left corner of the cell
	CellSize         float64
	FontSize         float64 // 原子标签字号
	ScaleFactor      float64
	MinX, MinY       float64
	OffsetX, OffsetY float64 // 居中偏移

	// 每个原子文字或符号的边界
	LabelLeft, LabelRight, LabelTop, LabelBottom []float64
}

// CalculateRenderConfig fits pos into a square cell of size cell, the way the
// single-molecule renderer sized its canvas: the scale fills the cell and the
// font follows the average bond length.
func CalculateRenderConfig(pos []Point, bonds []molecule.Bond, originX, originY, cell, maxFont float64) *MoleculeRenderConfig {
	minX, minY, maxX, maxY := bounds(pos)
	rx, ry := maxX-minX, maxY-minY
	avgBond := averageBondLength(pos, bonds)
	if avgBond == 0 {
		avgBond = 1
	}
	pad := maxFont * 1.5
	inner := cell - 2*pad
	scale := inner / 5 / avgBond // 小分子不要画得太大
	if rx > 0 {
		scale = math.Min(scale, inner/rx)
	}
	if ry > 0 {
		scale = math.Min(scale, inner/ry)
	}
	fontSize := math.Min(avgBond/1.8*scale, maxFont)
	if fontSize < 8 {
		fontSize = 8
	}
	n := len(pos)
	return &MoleculeRenderConfig{
		OriginX:     originX,
		OriginY:     originY,
		CellSize:    cell,
		FontSize:    fontSize,
		ScaleFactor: scale,
		MinX:        minX,
		MinY:        minY,
		OffsetX:     (cell - rx*scale) / 2,
		OffsetY:     (cell - ry*scale) / 2,
		LabelLeft:   make([]float64, n),
		LabelRight:  make([]float64, n),
		LabelTop:    make([]float64, n),
		LabelBottom: make([]float64, n),
	}
}

// toCanvas maps depiction coordinates to pixels; y grows downwards on the canvas
func (c *MoleculeRenderConfig) toCanvas(p Point) (float64, float64) {
	x := c.OriginX + c.OffsetX + c.ScaleFactor*(p.X-c.MinX)
	y := c.OriginY + c.CellSize - c.OffsetY - c.ScaleFactor*(p.Y-c.MinY)
	return x, y
}

// RenderIsomerGrid draws every isomer of a in a grid, perRow per row, each
// with its stereodescriptors marked and its label as legend.
func RenderIsomerGrid(a *stereo.Analysis, cfg config.Render) ([]byte, error) {
	n := len(a.Isomers)
	if n == 0 {
		return nil, fmt.Errorf("nothing to render")
	}
	cols, rows := GridFor(n, cfg.PerRow)
	cell := float64(cfg.CellSize)
	legendH := cfg.FontSize * 2.6
	width := cols * cfg.CellSize
	height := int(float64(rows) * (cell + legendH))

	pos := depictionCoords(a.Input)
	legendFace, err := loadFace(cfg.FontSize)
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}

	dc := gg.NewContext(width, height)
	// 白底
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	for i, iso := range a.Isomers {
		col, row := i%cols, i/cols
		x0 := float64(col) * cell
		y0 := float64(row) * (cell + legendH)
		drawCellBackground(dc, x0, y0, cell, cell+legendH, (col+row)%2 == 1)

		rc := CalculateRenderConfig(pos, iso.Mol.Bonds(), x0, y0, cell, cfg.FontSize)
		if err := doDrawMolecule(dc, iso, a.Features, pos, rc); err != nil {
			return nil, err
		}

		dc.SetFontFace(legendFace)
		dc.SetRGB(0.15, 0.15, 0.15)
		legend := iso.Describe()
		if cfg.ShowIndex {
			legend = fmt.Sprintf("Isomer %d: %s", iso.Index, legend)
		}
		dc.DrawStringWrapped(legend, x0+cell/2, y0+cell+legendH/2, 0.5, 0.5, cell-8, 1.1, gg.AlignCenter)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawCellBackground 双色棋盘格，区分相邻分子
func drawCellBackground(dc *gg.Context, x, y, w, h float64, shaded bool) {
	if shaded {
		dc.SetHexColor("#F4F4F4")
	} else {
		dc.SetHexColor("#FFFFFF")
	}
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()
}

// atomLabel returns the text drawn for an atom: heteroatoms with their
// hydrogens and charge, carbon only when charged or isolated.
func atomLabel(a molecule.Atom, degree int) string {
	if a.Element == "C" && a.Charge == 0 && a.Isotope == 0 && degree > 0 {
		return ""
	}
	s := a.Element
	if a.Isotope > 0 {
		s = fmt.Sprintf("%d%s", a.Isotope, a.Element)
	}
	switch {
	case a.HCount == 1:
		s += "H"
	case a.HCount > 1:
		s += fmt.Sprintf("H%d", a.HCount)
	}
	switch {
	case a.Charge == 1:
		s += "+"
	case a.Charge == -1:
		s += "-"
	case a.Charge > 1:
		s += fmt.Sprintf("%d+", a.Charge)
	case a.Charge < -1:
		s += fmt.Sprintf("%d-", -a.Charge)
	}
	return s
}

func doDrawMolecule(dc *gg.Context, iso *stereo.Isomer, features []stereo.Feature, pos []Point, cfg *MoleculeRenderConfig) error {
	mol := iso.Mol
	face, err := loadFace(cfg.FontSize)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)
	dc.SetLineWidth(math.Max(1, cfg.FontSize/12))
	dc.SetRGB(0, 0, 0)

	// 1) 绘制原子标签 & 计算 padding
	for i := 0; i < mol.NumAtoms(); i++ {
		x, y := cfg.toCanvas(pos[i])
		label := atomLabel(mol.Atom(i), mol.HeavyDegree(i))
		if label == "" {
			continue
		}
		w, _ := dc.MeasureString(label)
		cfg.LabelLeft[i] = w / 2
		cfg.LabelRight[i] = w / 2
		cfg.LabelTop[i] = cfg.FontSize / 2
		cfg.LabelBottom[i] = cfg.FontSize / 2
		dc.SetRGB(elementColor(mol.Atom(i).Element))
		dc.DrawStringAnchored(label, x, y, 0.5, 0.35)
	}
	dc.SetRGB(0, 0, 0)

	// 2) 绘制键（Bond）
	for _, b := range mol.Bonds() {
		x1, y1 := cfg.toCanvas(pos[b.From])
		x2, y2 := cfg.toCanvas(pos[b.To])
		p1 := calcLinePointConfined(x1, y1, x2, y2,
			cfg.LabelLeft[b.From], cfg.LabelRight[b.From], cfg.LabelTop[b.From], cfg.LabelBottom[b.From])
		p2 := calcLinePointConfined(x2, y2, x1, y1,
			cfg.LabelLeft[b.To], cfg.LabelRight[b.To], cfg.LabelTop[b.To], cfg.LabelBottom[b.To])
		rad := math.Atan2(y2-y1, x2-x1)
		delta := cfg.FontSize / 4
		dxOff := math.Sin(rad) * delta
		dyOff := -math.Cos(rad) * delta
		switch b.Order {
		case molecule.Single:
			dc.DrawLine(p1.X, p1.Y, p2.X, p2.Y)
		case molecule.Double:
			dc.DrawLine(p1.X+dxOff/2, p1.Y+dyOff/2, p2.X+dxOff/2, p2.Y+dyOff/2)
			dc.DrawLine(p1.X-dxOff/2, p1.Y-dyOff/2, p2.X-dxOff/2, p2.Y-dyOff/2)
		case molecule.Triple:
			dc.DrawLine(p1.X, p1.Y, p2.X, p2.Y)
			dc.DrawLine(p1.X+dxOff, p1.Y+dyOff, p2.X+dxOff, p2.Y+dyOff)
			dc.DrawLine(p1.X-dxOff, p1.Y-dyOff, p2.X-dxOff, p2.Y-dyOff)
		case molecule.Aromatic:
			dc.DrawLine(p1.X, p1.Y, p2.X, p2.Y)
			dc.Stroke()
			dc.SetDash(cfg.FontSize/5, cfg.FontSize/5)
			dc.DrawLine(p1.X+dxOff, p1.Y+dyOff, p2.X+dxOff, p2.Y+dyOff)
			dc.Stroke()
			dc.SetDash()
		}
		dc.Stroke()
	}

	// 3) 立体描述符：中心标在原子右上，双键标在键中点外侧
	small, err := loadFace(cfg.FontSize * 0.8)
	if err != nil {
		return err
	}
	dc.SetFontFace(small)
	dc.SetHexColor("#C0392B")
	for i, f := range features {
		if i >= len(iso.Labels) {
			break
		}
		tag := "(" + string(iso.Labels[i].Descriptor) + ")"
		if f.Kind == stereo.CenterFeature {
			x, y := cfg.toCanvas(pos[f.Atom])
			r := cfg.FontSize/2 + cfg.LabelRight[f.Atom]
			dc.DrawStringAnchored(tag, x+r, y-r, 0, 0.5)
			continue
		}
		x1, y1 := cfg.toCanvas(pos[f.From])
		x2, y2 := cfg.toCanvas(pos[f.To])
		rad := math.Atan2(y2-y1, x2-x1)
		off := cfg.FontSize
		dc.DrawStringAnchored(tag, (x1+x2)/2+math.Sin(rad)*off, (y1+y2)/2-math.Cos(rad)*off, 0.5, 0.5)
	}
	return nil
}

func elementColor(el string) (float64, float64, float64) {
	switch el {
	case "O":
		return 0.85, 0.1, 0.1
	case "N":
		return 0.1, 0.2, 0.85
	case "S":
		return 0.75, 0.6, 0.0
	case "F", "Cl":
		return 0.1, 0.6, 0.1
	case "Br":
		return 0.6, 0.2, 0.1
	}
	return 0, 0, 0
}

// calcLinePointConfined 把线段端点裁剪到原子标签的包围盒外
func calcLinePointConfined(x, y, x2, y2, left, right, top, bottom float64) Point {
	w := right
	if x2 <= x {
		w = left
	}
	h := top
	if y2 < y {
		h = bottom
	}
	if w == 0 && h == 0 {
		return Point{X: x, Y: y}
	}
	k := math.Atan2(h, w)
	sigx := math.Copysign(1, x2-x)
	sigy := math.Copysign(1, y2-y)
	absRad := math.Atan2(math.Abs(y2-y), math.Abs(x2-x))
	if absRad > k {
		return Point{X: x + sigx*h/math.Tan(absRad), Y: y + sigy*h}
	}
	return Point{X: x + sigx*w, Y: y + sigy*w*math.Tan(absRad)}
}

func bounds(pos []Point) (minX, minY, maxX, maxY float64) {
	minX, minY = math.MaxFloat64, math.MaxFloat64
	maxX, maxY = -math.MaxFloat64, -math.MaxFloat64
	for _, p := range pos {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	if len(pos) == 0 {
		return 0, 0, 0, 0
	}
	return
}

func averageBondLength(pos []Point, bonds []molecule.Bond) float64 {
	if len(bonds) == 0 {
		return 0
	}
	total := 0.0
	for _, b := range bonds {
		total += math.Hypot(pos[b.From].X-pos[b.To].X, pos[b.From].Y-pos[b.To].Y)
	}
	return total / float64(len(bonds))
}

// depictionCoords returns the molfile coordinates when the input carries
// them, otherwise a force-directed layout.
func depictionCoords(mol *molecule.Molecule) []Point {
	pos := make([]Point, mol.NumAtoms())
	has := false
	for i := range pos {
		a := mol.Atom(i)
		pos[i] = Point{a.X, a.Y}
		if a.X != 0 || a.Y != 0 {
			has = true
		}
	}
	if has && averageBondLength(pos, mol.Bonds()) > 0 {
		return pos
	}
	return springLayout(mol)
}

// springLayout is a deterministic Fruchterman-Reingold embedding with unit
// ideal bond length, started from a circle in atom order.
func springLayout(mol *molecule.Molecule) []Point {
	n := mol.NumAtoms()
	pos := make([]Point, n)
	if n == 0 {
		return pos
	}
	radius := math.Max(1, float64(n)/(2*math.Pi))
	for i := range pos {
		t := 2 * math.Pi * float64(i) / float64(n)
		pos[i] = Point{radius * math.Cos(t), radius * math.Sin(t)}
	}
	bonds := mol.Bonds()
	const (
		k      = 1.0
		rounds = 300
	)
	temp := radius
	disp := make([]Point, n)
	for it := 0; it < rounds; it++ {
		for i := range disp {
			disp[i] = Point{}
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx, dy := pos[i].X-pos[j].X, pos[i].Y-pos[j].Y
				d := math.Max(math.Hypot(dx, dy), 1e-3)
				f := k * k / d
				disp[i].X += dx / d * f
				disp[i].Y += dy / d * f
				disp[j].X -= dx / d * f
				disp[j].Y -= dy / d * f
			}
		}
		for _, b := range bonds {
			dx, dy := pos[b.From].X-pos[b.To].X, pos[b.From].Y-pos[b.To].Y
			d := math.Max(math.Hypot(dx, dy), 1e-3)
			f := d * d / k
			disp[b.From].X -= dx / d * f
			disp[b.From].Y -= dy / d * f
			disp[b.To].X += dx / d * f
			disp[b.To].Y += dy / d * f
		}
		for i := range pos {
			d := math.Hypot(disp[i].X, disp[i].Y)
			if d == 0 {
				continue
			}
			step := math.Min(d, temp)
			pos[i].X += disp[i].X / d * step
			pos[i].Y += disp[i].Y / d * step
		}
		temp = math.Max(temp*0.98, 0.01)
	}
	return pos
}
