package schedule

import (
	"reflect"
	"time"

	"github.com/siralexgrey/yasno-zrozumilo/internal/common/timeutil"
	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
)

// Detector вирішує, чи є зміна графіка черги суттєвою, і складає
// людиночитний список змін. Косметичний шум і нічний перехід
// "завтра стає сьогодні" не вважаються змінами.
type Detector struct {
	loc *time.Location
}

func NewDetector(loc *time.Location) *Detector {
	return &Detector{loc: loc}
}

// Detect порівнює попередній і поточний документи для однієї черги.
// Порядок правил суттєвий: придушення нічного переходу має відпрацювати
// до порівняння слотів, інакше кожна північ породжувала б хибне
// "змінився графік на сьогодні" для всіх підписників.
func (d *Detector) Detect(previous, current models.ScheduleDocument, queueID string) (bool, []string) {
	if previous == nil || current == nil {
		return false, nil
	}

	prevQueue, ok := previous[queueID]
	if !ok {
		return false, nil
	}

	currQueue, ok := current[queueID]
	if !ok {
		return false, nil
	}

	if reflect.DeepEqual(prevQueue, currQueue) {
		return false, nil
	}

	if isRollover(prevQueue, currQueue) {
		return false, nil
	}

	var changes []string

	if prevQueue.UpdatedOn != currQueue.UpdatedOn {
		changes = append(changes, "Графік оновлено: "+d.formatUpdatedOn(currQueue.UpdatedOn))
	}

	changes = append(changes, emergencyTransitions(prevQueue, currQueue)...)

	if tomorrowAppeared(prevQueue, currQueue) {
		changes = append(changes, "З'явився графік на завтра!")
	}

	if !slotsEqual(prevQueue.Today.DefiniteSlots(), currQueue.Today.DefiniteSlots()) {
		changes = append(changes, "Змінився графік на сьогодні")
	}

	return len(changes) > 0, changes
}

// isRollover розпізнає нічний перехід: учорашнє "завтра" стало
// сьогоднішнім "сьогодні" з тим самим списком підтверджених відключень.
func isRollover(prev, curr models.QueueSchedule) bool {
	if prev.Tomorrow.Date == "" || prev.Tomorrow.Date != curr.Today.Date {
		return false
	}

	return slotsEqual(prev.Tomorrow.DefiniteSlots(), curr.Today.DefiniteSlots())
}

func emergencyTransitions(prev, curr models.QueueSchedule) []string {
	var changes []string

	switch {
	case prev.Today.Status != models.StatusEmergencyShutdowns && curr.Today.Status == models.StatusEmergencyShutdowns:
		changes = append(changes, "⚠️ Почалися екстрені відключення")
	case prev.Today.Status == models.StatusEmergencyShutdowns && curr.Today.Status != models.StatusEmergencyShutdowns:
		changes = append(changes, "✅ Екстрені відключення скасовано")
	}

	switch {
	case prev.Tomorrow.Status != models.StatusEmergencyShutdowns && curr.Tomorrow.Status == models.StatusEmergencyShutdowns:
		changes = append(changes, "⚠️ На завтра оголошено екстрені відключення")
	case prev.Tomorrow.Status == models.StatusEmergencyShutdowns && curr.Tomorrow.Status != models.StatusEmergencyShutdowns:
		changes = append(changes, "✅ Екстрені відключення на завтра скасовано")
	}

	return changes
}

// tomorrowAppeared: статус "завтра" пішов з очікування і тепер несе слоти.
// Перехід в екстрені відключення вже описано окремим правилом.
func tomorrowAppeared(prev, curr models.QueueSchedule) bool {
	if prev.Tomorrow.Status != models.StatusWaitingForSchedule {
		return false
	}

	if curr.Tomorrow.Status == models.StatusWaitingForSchedule ||
		curr.Tomorrow.Status == models.StatusEmergencyShutdowns {
		return false
	}

	return len(curr.Tomorrow.Slots) > 0
}

func slotsEqual(a, b []models.Slot) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func (d *Detector) formatUpdatedOn(raw string) string {
	t, err := timeutil.ParseUpstreamTime(raw, d.loc)
	if err != nil {
		if len(raw) > 16 {
			return raw[:16]
		}

		return raw
	}

	return timeutil.FormatMinute(t, d.loc)
}
