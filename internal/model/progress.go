package model

// MilestoneProgress 单个里程碑的进度
type MilestoneProgress struct {
	MilestoneID    int64   `json:"milestone_id"`
	Title          string  `json:"title"`
	TotalHours     float64 `json:"total_hours"`
	CompletedHours float64 `json:"completed_hours"`
	Percent        float64 `json:"percent"`
	ApprovedTasks  int     `json:"approved_tasks"`
	PendingTasks   int     `json:"pending_tasks"`
}

// ContractProgress 合同整体进度
type ContractProgress struct {
	ContractID     int64               `json:"contract_id"`
	Milestones     []MilestoneProgress `json:"milestones"`
	TotalHours     float64             `json:"total_hours"`
	CompletedHours float64             `json:"completed_hours"`
	Percent        float64             `json:"percent"`
}

// ComputeProgress 只有 approved 任务计入完成工时；百分比截断到 [0,100]，总工时为 0 时为 0
func ComputeProgress(c *Contract, tasks []Task) ContractProgress {
	out := ContractProgress{ContractID: c.ID, Milestones: make([]MilestoneProgress, 0, len(c.Milestones))}
	index := make(map[int64]int, len(c.Milestones))
	for i, m := range c.Milestones {
		index[m.ID] = i
		out.Milestones = append(out.Milestones, MilestoneProgress{
			MilestoneID: m.ID,
			Title:       m.Title,
			TotalHours:  m.EstimatedHours,
		})
	}

	for _, t := range tasks {
		i, ok := index[t.MilestoneID]
		if !ok || t.ContractID != c.ID {
			continue
		}
		switch t.Status {
		case TaskApproved:
			out.Milestones[i].CompletedHours += t.Hours
			out.Milestones[i].ApprovedTasks++
		case TaskSubmitted:
			out.Milestones[i].PendingTasks++
		}
	}

	for i := range out.Milestones {
		m := &out.Milestones[i]
		m.Percent = percent(m.CompletedHours, m.TotalHours)
		out.TotalHours += m.TotalHours
		out.CompletedHours += m.CompletedHours
	}
	out.Percent = percent(out.CompletedHours, out.TotalHours)
	return out
}

func percent(done, total float64) float64 {
	if total <= 0 {
		return 0
	}
	p := done / total * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
