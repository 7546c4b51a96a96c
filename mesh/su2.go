package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// From here: https://su2code.github.io/docs_v7/Mesh-File/
type SU2ElementType uint8

const (
	ELType_LINE          SU2ElementType = 3
	ELType_Triangle      SU2ElementType = 5
	ELType_Quadrilateral SU2ElementType = 9
	ELType_Tetrahedral   SU2ElementType = 10
	ELType_Hexahedral    SU2ElementType = 12
	ELType_Prism         SU2ElementType = 13
	ELType_Pyramid       SU2ElementType = 14
)

// ReadSU2File opens filename and reads it with ReadSU2
func ReadSU2File(filename string, verbose bool) (m *Mesh, err error) {
	var file *os.File
	if verbose {
		fmt.Printf("Reading SU2 file named: %s\n", filename)
	}
	if file, err = os.Open(filename); err != nil {
		return
	}
	defer file.Close()
	return ReadSU2(file)
}

// ReadSU2 reads a triangle (NDIME= 2) or tetrahedron (NDIME= 3) mesh in SU2
// format. Node indices in the file are 0-based; the returned EToV is 1-based
// and positively oriented. Boundary markers become Mesh.Markers.
func ReadSU2(r io.Reader) (m *Mesh, err error) {
	var (
		rd = &su2Reader{reader: bufio.NewReader(r)}
	)
	m = &Mesh{}
	if m.Dim, err = rd.readNumber("NDIME"); err != nil {
		return nil, err
	}
	if m.Dim != 2 && m.Dim != 3 {
		return nil, fmt.Errorf("SU2 dimension must be 2 or 3, have %d", m.Dim)
	}
	m.Nln = m.Dim + 1
	if err = rd.readElements(m); err != nil {
		return nil, err
	}
	if err = rd.readVertices(m); err != nil {
		return nil, err
	}
	for _, v := range m.EToV {
		if v < 1 || v > m.NumNodes {
			return nil, fmt.Errorf("element references node %d, have %d nodes", v-1, m.NumNodes)
		}
	}
	if m.Markers, err = rd.readMarkers(m); err != nil {
		return nil, err
	}
	m.orient()
	return
}

type su2Reader struct {
	reader *bufio.Reader
	eof    bool
}

func (rd *su2Reader) getLine() (line string, err error) {
	if rd.eof {
		return "", io.ErrUnexpectedEOF
	}
	line, err = rd.reader.ReadString('\n')
	if err == io.EOF && len(line) != 0 {
		rd.eof, err = true, nil
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	line = strings.TrimSpace(line)
	return
}

// getLineNoComments skips blank lines and lines starting with %
func (rd *su2Reader) getLineNoComments() (line string, err error) {
	for {
		if line, err = rd.getLine(); err != nil {
			return
		}
		if len(line) != 0 && !strings.HasPrefix(line, "%") {
			return
		}
	}
}

func (rd *su2Reader) getToken(key string) (token string, err error) {
	var line string
	if line, err = rd.getLineNoComments(); err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	ind := strings.Index(line, "=")
	if ind < 0 || strings.TrimSpace(line[:ind]) != key {
		return "", fmt.Errorf("badly formed input line [%s], want %s=", line, key)
	}
	token = strings.TrimSpace(line[ind+1:])
	return
}

func (rd *su2Reader) readNumber(key string) (num int, err error) {
	var token string
	if token, err = rd.getToken(key); err != nil {
		return
	}
	if _, err = fmt.Sscanf(token, "%d", &num); err != nil {
		err = fmt.Errorf("unable to read number from token: [%s]", token)
	}
	return
}

func (rd *su2Reader) readElements(m *Mesh) (err error) {
	var (
		line  string
		want  SU2ElementType = ELType_Triangle
		nType int
	)
	if m.Dim == 3 {
		want = ELType_Tetrahedral
	}
	if m.K, err = rd.readNumber("NELEM"); err != nil {
		return
	}
	m.EToV = make([]int, 0, m.K*m.Nln)
	for k := 0; k < m.K; k++ {
		if line, err = rd.getLine(); err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) < m.Nln+1 {
			return fmt.Errorf("unable to read vertices of element %d from [%s]", k, line)
		}
		if _, err = fmt.Sscanf(fields[0], "%d", &nType); err != nil {
			return
		}
		if SU2ElementType(nType) != want {
			return fmt.Errorf("element %d has SU2 type %d, only type %d is supported in %dD",
				k, nType, want, m.Dim)
		}
		for _, f := range fields[1 : m.Nln+1] {
			var v int
			if _, err = fmt.Sscanf(f, "%d", &v); err != nil {
				return
			}
			m.EToV = append(m.EToV, v+1)
		}
	}
	return
}

func (rd *su2Reader) readVertices(m *Mesh) (err error) {
	var line string
	if m.NumNodes, err = rd.readNumber("NPOIN"); err != nil {
		return
	}
	m.X = make([]float64, m.Dim*m.NumNodes)
	for i := 0; i < m.NumNodes; i++ {
		if line, err = rd.getLine(); err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) < m.Dim {
			return fmt.Errorf("unable to read coordinates of node %d from [%s]", i, line)
		}
		for d := 0; d < m.Dim; d++ {
			if _, err = fmt.Sscanf(fields[d], "%g", &m.X[d*m.NumNodes+i]); err != nil {
				return
			}
		}
	}
	return
}

// readMarkers collects the nodes of each marker's boundary elements. Markers
// with a repeated tag are merged.
func (rd *su2Reader) readMarkers(m *Mesh) (markers map[string][]int, err error) {
	var (
		NMark, nElems int
		label, line   string
	)
	if NMark, err = rd.readNumber("NMARK"); err != nil {
		return
	}
	markers = make(map[string][]int, NMark)
	for n := 0; n < NMark; n++ {
		if label, err = rd.getToken("MARKER_TAG"); err != nil {
			return
		}
		if nElems, err = rd.readNumber("MARKER_ELEMS"); err != nil {
			return
		}
		seen := make(map[int]bool)
		for _, v := range markers[label] {
			seen[v] = true
		}
		for i := 0; i < nElems; i++ {
			if line, err = rd.getLine(); err != nil {
				return
			}
			fields := strings.Fields(line)
			if len(fields) < m.Dim+1 {
				return nil, fmt.Errorf("badly formed marker element [%s]", line)
			}
			// First field is the boundary element type
			for _, f := range fields[1 : m.Dim+1] {
				var v int
				if _, err = fmt.Sscanf(f, "%d", &v); err != nil {
					return
				}
				if v < 0 || v >= m.NumNodes {
					return nil, fmt.Errorf("marker %s references node %d, have %d nodes", label, v, m.NumNodes)
				}
				if !seen[v] {
					seen[v] = true
					markers[label] = append(markers[label], v)
				}
			}
		}
	}
	return
}
