package repository

import "errors"

var (
	// ErrSlotTaken 该时段已有活跃预约
	ErrSlotTaken = errors.New("时段已被预约")
	// ErrCodeExists 折扣码已存在
	ErrCodeExists = errors.New("折扣码已存在")
	// ErrAlreadyReviewed 申请已被审核过，二次裁决无效
	ErrAlreadyReviewed = errors.New("该申请已审核")
	// ErrInvalidTransition 预约不在期望的起始状态
	ErrInvalidTransition = errors.New("预约状态不允许该变更")
)
