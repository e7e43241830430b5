package repository

import "gorm.io/gorm"

// Repositories groups every repository over a single *gorm.DB so services can
// share one TransactionManager.
type Repositories struct {
	Tx            TransactionManager
	Requests      PendingRequestRepository
	Tasks         TaskRepository
	History       HistoryRepository
	Notifications NotificationRepository
	Orders        OrderRepository
	Leads         LeadRepository
	Rejections    RejectionRepository
	UrgentReasons UrgentReasonRepository
	Users         UserRepository
	Audit         AuditRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Tx:            NewTransactionManager(db),
		Requests:      NewPendingRequestRepository(db),
		Tasks:         NewTaskRepository(db),
		History:       NewHistoryRepository(db),
		Notifications: NewNotificationRepository(db),
		Orders:        NewOrderRepository(db),
		Leads:         NewLeadRepository(db),
		Rejections:    NewRejectionRepository(db),
		UrgentReasons: NewUrgentReasonRepository(db),
		Users:         NewUserRepository(db),
		Audit:         NewAuditRepository(db),
	}
}
