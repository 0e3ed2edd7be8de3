package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"

	"github.com/piwi3910/BarCut/internal/model"
)

// ReportVersion is written into every saved report.
const ReportVersion = "1.0.0"

// SysInfo describes the machine a run was executed on.
type SysInfo struct {
	Platform string `json:"platform"`
	CPU      string `json:"cpu"`
	Memory   string `json:"memory"`
	GoVer    string `json:"go_version"`
}

// ReportInput is the demand and stock a run was given.
type ReportInput struct {
	Pieces []model.ProfilePiece `json:"pieces"`
	Bars   []model.ProfileBar   `json:"bars"`
}

// Report is a saved optimization run.
type Report struct {
	Version   string               `json:"version"`
	RunID     string               `json:"run_id"`
	CreatedAt string               `json:"created_at"`
	Elapsed   string               `json:"elapsed,omitempty"`
	System    SysInfo              `json:"system"`
	Settings  model.Settings       `json:"settings"`
	Input     ReportInput          `json:"input"`
	Result    model.OptimizeResult `json:"result"`
}

// NewReport wraps a result with run metadata.
func NewReport(input ReportInput, settings model.Settings, result model.OptimizeResult, elapsed time.Duration) Report {
	r := Report{
		Version:   ReportVersion,
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		System:    CollectSysInfo(),
		Settings:  settings,
		Input:     input,
		Result:    result,
	}
	if elapsed > 0 {
		r.Elapsed = elapsed.Round(time.Millisecond).String()
	}
	return r
}

// CollectSysInfo reads the host platform, CPU model and total memory.
// Fields that cannot be read are left as "unknown".
func CollectSysInfo() SysInfo {
	info := SysInfo{Platform: "unknown", CPU: "unknown", Memory: "unknown", GoVer: runtime.Version()}

	if hostStat, err := host.Info(); err != nil {
		log.V(1).Infof("host info unavailable: %v", err)
	} else if hostStat.Platform != "" {
		info.Platform = hostStat.Platform
	}
	if cpuStat, err := cpu.Info(); err == nil && len(cpuStat) > 0 && cpuStat[0].ModelName != "" {
		info.CPU = cpuStat[0].ModelName
	} else if err != nil {
		log.V(1).Infof("cpu info unavailable: %v", err)
	}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		info.Memory = fmt.Sprintf("%d GB", vmStat.Total/1024/1024/1024)
	} else {
		log.V(1).Infof("memory info unavailable: %v", err)
	}
	return info
}

// SaveReport writes the report as indented JSON, creating parent
// directories as needed.
func SaveReport(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// LoadReport reads a report saved by SaveReport.
func LoadReport(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read report file: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("failed to parse report file: %w", err)
	}
	if report.Version == "" {
		return Report{}, fmt.Errorf("invalid report file: missing version field")
	}
	return report, nil
}
