package hardware

import (
	"context"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/protocol"
)

// FileSource reads a YAML status file written by the hardware bridge.
// The file is re-read on every query.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) read(op string) (protocol.StatusReport, error) {
	var report protocol.StatusReport
	data, err := os.ReadFile(f.path)
	if err != nil {
		return report, errors.New(errors.ErrCodeStatusUnavailable, op, "reading status file", err)
	}
	if err := yaml.Unmarshal(data, &report); err != nil {
		return report, errors.New(errors.ErrCodeStatusUnavailable, op, "parsing status file", err)
	}
	return report, nil
}

func (f *FileSource) OperatingMode(ctx context.Context) (consts.OperatingMode, error) {
	report, err := f.read("FileSource.OperatingMode")
	if err != nil {
		return "", err
	}
	return consts.ParseReportedMode(report.Mode), nil
}

func (f *FileSource) CommandedMission(ctx context.Context) (consts.MissionKind, error) {
	report, err := f.read("FileSource.CommandedMission")
	if err != nil {
		return "", err
	}
	return consts.ParseMissionKind(report.Mission), nil
}

func (f *FileSource) Probe(ctx context.Context) error {
	_, err := f.read("FileSource.Probe")
	return err
}

// WriteStatusFile writes report to path in the format FileSource reads.
func WriteStatusFile(path string, report protocol.StatusReport) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Personal.AI order the ending
