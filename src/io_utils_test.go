package src

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func writeTmp(t *testing.T, name string, content string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "metaprog")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadFileWithNames(t *testing.T) {
	path := writeTmp(t, "m.txt", "\tc1\tc2\tc3\ng1\t1\t2\t3\ng2\t4\t5\t6\n")
	data, rName, cName, err := ReadFile(path, true, true)
	require.NoError(t, err)
	require.Equal(t, []string{"g1", "g2"}, rName)
	require.Equal(t, []string{"c1", "c2", "c3"}, cName)
	nRow, nCol := data.Caps()
	require.Equal(t, 2, nRow)
	require.Equal(t, 3, nCol)
	require.Equal(t, 6.0, data.At(1, 2))
}

func TestReadFileEmpty(t *testing.T) {
	path := writeTmp(t, "empty.txt", "")
	_, _, _, err := ReadFile(path, true, true)
	require.Error(t, err)
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "metaprog")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "out.txt")

	data := mat.NewDense(2, 2, []float64{1.5, 2.0, 3.25, 4.0})
	require.NoError(t, WriteLabeledFile(path, data, []string{"g1", "g2"}, []string{"s1", "s2"}))
	got, rName, cName, err := ReadFile(path, true, true)
	require.NoError(t, err)
	require.Equal(t, []string{"g1", "g2"}, rName)
	require.Equal(t, []string{"s1", "s2"}, cName)
	require.True(t, mat.EqualApprox(data, got, 1e-6))
}

func TestReadGeneSets(t *testing.T) {
	path := writeTmp(t, "sets.gmt", "setA\tdesc\tg1\tg2\tg3\nsetB\tdesc\tg2\tg4\n")
	names, sets, err := ReadGeneSets(path)
	require.NoError(t, err)
	require.Equal(t, []string{"setA", "setB"}, names)
	require.Equal(t, []string{"g1", "g2", "g3"}, sets["setA"])
	require.Equal(t, []string{"g2", "g4"}, sets["setB"])
}

func TestReadGeneSetsShortLine(t *testing.T) {
	path := writeTmp(t, "bad.gmt", "setA\tdesc\n")
	_, _, err := ReadGeneSets(path)
	require.Error(t, err)
}

func TestWriteGMTRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "metaprog")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "sets.gmt")

	names := []string{"p1", "p2"}
	sets := map[string][]string{"p1": {"g1", "g2"}, "p2": {"g3"}}
	require.NoError(t, WriteGMT(path, names, sets, "test"))
	gotNames, gotSets, err := ReadGeneSets(path)
	require.NoError(t, err)
	require.Equal(t, names, gotNames)
	require.Equal(t, sets["p1"], gotSets["p1"])
	require.Equal(t, sets["p2"], gotSets["p2"])
}

func TestReadAnnotation(t *testing.T) {
	path := writeTmp(t, "meta.txt", "cell\tsample\tcluster\nc1\ts1\tk1\nc2\ts2\tk2\n")
	cells, labels, err := ReadAnnotation(path, "", "sample")
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2"}, cells)
	require.Equal(t, []string{"s1", "s2"}, labels)

	cells, labels, err = ReadAnnotation(path, "cell", "cluster")
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2"}, cells)
	require.Equal(t, []string{"k1", "k2"}, labels)
}

func TestReadAnnotationMissingColumn(t *testing.T) {
	path := writeTmp(t, "meta.txt", "cell\tsample\nc1\ts1\n")
	_, _, err := ReadAnnotation(path, "", "cluster")
	require.Error(t, err)
}

func TestReadClinical(t *testing.T) {
	path := writeTmp(t, "clin.txt",
		"subject\ttime\tstatus\tstage\ns1\t10\t1\tI\ns2\t20\t0\tII\ns3\tNA\t1\tI\ns4\t30\t1\tII\n")
	clin, err := ReadClinical(path, "time", "status", []string{"stage"})
	require.NoError(t, err)
	//row with NA time dropped
	require.Equal(t, []string{"s1", "s2", "s4"}, clin.Subjects)
	require.Equal(t, []float64{10, 20, 30}, clin.Time)
	require.Equal(t, []float64{1, 0, 1}, clin.Event)
	require.Equal(t, []string{"I", "II", "II"}, clin.Covariates["stage"])
}

func TestReadClinicalBadColumns(t *testing.T) {
	path := writeTmp(t, "clin.txt", "subject\ttime\tstatus\ns1\t10\t1\n")
	_, err := ReadClinical(path, "os", "status", nil)
	require.Error(t, err)
	_, err = ReadClinical(path, "time", "dead", nil)
	require.Error(t, err)
	_, err = ReadClinical(path, "time", "status", []string{"stage"})
	require.Error(t, err)
}

func TestReadClinicalBadEvent(t *testing.T) {
	path := writeTmp(t, "clin.txt", "subject\ttime\tstatus\ns1\t10\t2\n")
	_, err := ReadClinical(path, "time", "status", nil)
	require.Error(t, err)
}
