package sql

import (
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
)

// toJobEntity converts the domain aggregate to its persistence entity.
func toJobEntity(job *model.BatchJob) *BatchJobEntity {
	return &BatchJobEntity{
		ID:            job.ID,
		AccountID:     job.AccountID,
		Status:        string(job.Status),
		Config:        job.Config,
		Progress:      job.Progress,
		RecentResults: job.RecentResults,
		ErrorMessage:  job.ErrorMessage,
		CreatedBy:     job.CreatedBy,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
		CompletedAt:   job.CompletedAt,
	}
}

// toJobModel converts a persistence entity back to the domain aggregate.
func toJobModel(entity *BatchJobEntity) *model.BatchJob {
	job := &model.BatchJob{
		ID:            entity.ID,
		AccountID:     entity.AccountID,
		Status:        model.JobStatus(entity.Status),
		Config:        entity.Config,
		Progress:      entity.Progress,
		RecentResults: entity.RecentResults,
		ErrorMessage:  entity.ErrorMessage,
		CreatedBy:     entity.CreatedBy,
		CreatedAt:     entity.CreatedAt,
		UpdatedAt:     entity.UpdatedAt,
		CompletedAt:   entity.CompletedAt,
	}
	if job.RecentResults == nil {
		job.RecentResults = make(model.AssessmentItemList, 0)
	}
	return job
}

// toFrameworkModel converts a framework entity to the domain framework.
func toFrameworkModel(entity *FrameworkEntity) *model.Framework {
	framework := model.Framework(entity.Document)
	if framework.ID == "" {
		framework.ID = entity.ID
	}
	if framework.Name == "" {
		framework.Name = entity.Name
	}
	return &framework
}
