package workflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/edvin/vpshost/internal/activity"
	"github.com/edvin/vpshost/internal/model"
	"github.com/edvin/vpshost/internal/verify"
)

type ReconcileDomainsWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *ReconcileDomainsWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *ReconcileDomainsWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func sweepItem(domainID, hostname string) activity.DomainWithInstance {
	ip := "203.0.113.5"
	return activity.DomainWithInstance{
		Domain: model.Domain{
			ID:         domainID,
			InstanceID: "test-inst-1",
			Hostname:   hostname,
			SSLStatus:  model.SSLStatusPending,
			SSLEnabled: true,
		},
		Instance: model.Instance{
			ID:        "test-inst-1",
			Status:    model.StatusRunning,
			IPAddress: &ip,
		},
	}
}

func (s *ReconcileDomainsWorkflowTestSuite) TestSweepPersistsOutcomes() {
	items := []activity.DomainWithInstance{
		sweepItem("test-dom-1", "shop.example.com"),
		sweepItem("test-dom-2", "blog.example.com"),
	}

	s.env.OnActivity("BeginReconcileRun", mock.Anything, mock.Anything).Return("run-1", nil)
	s.env.OnActivity("ListDomainsForReconcile", mock.Anything).Return(items, nil)

	s.env.OnActivity("VerifyDomain", mock.Anything, mock.MatchedBy(func(p activity.VerifyDomainParams) bool {
		return p.Domain.ID == "test-dom-1"
	})).Return(&verify.Outcome{
		DNSValid:     true,
		Cert:         verify.PresencePresent,
		TLSReachable: true,
		Status:       model.SSLStatusActive,
		SSLEnabled:   true,
	}, nil)
	s.env.OnActivity("VerifyDomain", mock.Anything, mock.MatchedBy(func(p activity.VerifyDomainParams) bool {
		return p.Domain.ID == "test-dom-2"
	})).Return(&verify.Outcome{
		DNSValid:   false,
		Cert:       verify.PresenceAbsent,
		Status:     model.SSLStatusPending,
		SSLEnabled: true,
	}, nil)

	s.env.OnActivity("SaveDomainVerification", mock.Anything, mock.MatchedBy(func(p activity.SaveDomainVerificationParams) bool {
		return p.DomainID == "test-dom-1" && p.Status == model.SSLStatusActive
	})).Return(nil)
	s.env.OnActivity("SaveDomainVerification", mock.Anything, mock.MatchedBy(func(p activity.SaveDomainVerificationParams) bool {
		return p.DomainID == "test-dom-2" && p.Status == model.SSLStatusPending
	})).Return(nil)

	s.env.OnActivity("FinishReconcileRun", mock.Anything, mock.MatchedBy(func(p activity.FinishReconcileRunParams) bool {
		return p.RunID == "run-1" && p.DomainsChecked == 2 &&
			p.StatusCounts[model.SSLStatusActive] == 1 &&
			p.StatusCounts[model.SSLStatusPending] == 1
	})).Return(nil)

	s.env.ExecuteWorkflow(ReconcileDomainsWorkflow, ReconcileDomainsParams{})
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *ReconcileDomainsWorkflowTestSuite) TestOverlappingRunSkips() {
	s.env.OnActivity("BeginReconcileRun", mock.Anything, mock.Anything).Return("", nil)

	s.env.ExecuteWorkflow(ReconcileDomainsWorkflow, ReconcileDomainsParams{})
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *ReconcileDomainsWorkflowTestSuite) TestVerifyFailureSkipsPersistButContinues() {
	items := []activity.DomainWithInstance{
		sweepItem("test-dom-1", "shop.example.com"),
		sweepItem("test-dom-2", "blog.example.com"),
	}

	s.env.OnActivity("BeginReconcileRun", mock.Anything, mock.Anything).Return("run-2", nil)
	s.env.OnActivity("ListDomainsForReconcile", mock.Anything).Return(items, nil)

	s.env.OnActivity("VerifyDomain", mock.Anything, mock.MatchedBy(func(p activity.VerifyDomainParams) bool {
		return p.Domain.ID == "test-dom-1"
	})).Return(nil, fmt.Errorf("checker panic"))
	s.env.OnActivity("VerifyDomain", mock.Anything, mock.MatchedBy(func(p activity.VerifyDomainParams) bool {
		return p.Domain.ID == "test-dom-2"
	})).Return(&verify.Outcome{
		DNSValid:     true,
		Cert:         verify.PresencePresent,
		TLSReachable: true,
		Status:       model.SSLStatusActive,
		SSLEnabled:   true,
	}, nil)

	s.env.OnActivity("SaveDomainVerification", mock.Anything, mock.MatchedBy(func(p activity.SaveDomainVerificationParams) bool {
		return p.DomainID == "test-dom-2"
	})).Return(nil)

	s.env.OnActivity("FinishReconcileRun", mock.Anything, mock.MatchedBy(func(p activity.FinishReconcileRunParams) bool {
		return p.RunID == "run-2" && p.DomainsChecked == 1
	})).Return(nil)

	s.env.ExecuteWorkflow(ReconcileDomainsWorkflow, ReconcileDomainsParams{})
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *ReconcileDomainsWorkflowTestSuite) TestListFailure_MarksRunFailed() {
	s.env.OnActivity("BeginReconcileRun", mock.Anything, mock.Anything).Return("run-3", nil)
	s.env.OnActivity("ListDomainsForReconcile", mock.Anything).Return(nil, fmt.Errorf("db error"))
	s.env.OnActivity("FinishReconcileRun", mock.Anything, mock.MatchedBy(func(p activity.FinishReconcileRunParams) bool {
		return p.RunID == "run-3" && p.Failed
	})).Return(nil)

	s.env.ExecuteWorkflow(ReconcileDomainsWorkflow, ReconcileDomainsParams{})
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func TestReconcileDomainsWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(ReconcileDomainsWorkflowTestSuite))
}
